package kvstore

import "fmt"

// Key builders matching the exact layout in the external interfaces table.
// Keeping them centralized avoids drift between the data layer's readers
// and writers.

func PlayerDataKey(playerID string) string    { return fmt.Sprintf("players:%s:data", playerID) }
func PlayerSessionKey(playerID string) string { return fmt.Sprintf("players:%s:session", playerID) }
func PlayersActiveKey() string                { return "players:active" }

// PlayerByUsernameKey is a supplemental index (documented in SPEC_FULL.md
// §4.1) needed to enforce case-insensitive username uniqueness.
func PlayerByUsernameKey(usernameLower string) string {
	return fmt.Sprintf("players:byUsername:%s", usernameLower)
}

func LobbyDataKey(lobbyID string) string    { return fmt.Sprintf("lobbies:%s:data", lobbyID) }
func LobbyPlayersKey(lobbyID string) string { return fmt.Sprintf("lobbies:%s:players", lobbyID) }
func LobbiesActiveKey() string              { return "lobbies:active" }

func GameDataKey(gameID string) string    { return fmt.Sprintf("games:%s:data", gameID) }
func GamePlayersKey(gameID string) string { return fmt.Sprintf("games:%s:players", gameID) }
func GameHexesKey(gameID string) string   { return fmt.Sprintf("games:%s:hexes", gameID) }
func GamePointsKey(gameID string) string  { return fmt.Sprintf("games:%s:points", gameID) }
func GameEventsKey(gameID string) string  { return fmt.Sprintf("games:%s:events", gameID) }
func GamesActiveKey() string              { return "games:active" }

// HexField formats the "q:r" field name used within a game's hex hash.
func HexField(q, r int) string {
	return fmt.Sprintf("%d:%d", q, r)
}

// PointsField formats the field name within a game's points hash.
func PointsField(playerID string) string {
	return playerID
}
