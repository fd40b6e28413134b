// Package admin is the single-line text command surface on stdin:
//
//	rooms list
//	rooms create <name> [max] [map] [mode]
//	rooms close <ref> [reason]
//	rooms info <ref>
//	rooms set <ref> maxPlayers <n>
//	rooms rename <ref> <newName>
//	rooms kick <ref> <player_id>
//	rooms move <player_id> <target_ref>
package admin

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/evgenius1424/need-for-fun/internal/game"
	"github.com/evgenius1424/need-for-fun/internal/room"
)

// Console parses and executes admin commands against the room manager.
type Console struct {
	manager    *room.Manager
	mapDir     string
	defaultMap string
}

// NewConsole creates the admin command processor.
func NewConsole(manager *room.Manager, mapDir, defaultMap string) *Console {
	return &Console{manager: manager, mapDir: mapDir, defaultMap: defaultMap}
}

// Run reads lines until EOF. Intended to run as a goroutine on stdin.
func (c *Console) Run(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, out := range c.Execute(line) {
			log.Println(out)
		}
	}
}

// Execute runs one command line and returns the output lines.
func (c *Console) Execute(line string) []string {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "rooms" {
		return nil
	}
	if len(parts) < 2 {
		return []string{"rooms commands: list|create|close|info|set|rename|kick|move"}
	}

	switch parts[1] {
	case "list":
		return c.list()
	case "create":
		return c.create(parts[2:])
	case "close":
		return c.close(parts[2:])
	case "info":
		return c.info(parts[2:])
	case "set":
		return c.set(parts[2:])
	case "rename":
		return c.rename(parts[2:])
	case "kick":
		return c.kick(parts[2:])
	case "move":
		return c.move(parts[2:])
	default:
		return []string{"unknown rooms command: " + parts[1]}
	}
}

func (c *Console) list() []string {
	summaries := c.manager.ListRooms()
	if len(summaries) == 0 {
		return []string{"no rooms"}
	}
	out := make([]string, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, fmt.Sprintf("%s %s %d/%d %s", s.RoomID, s.Name, s.CurrentPlayers, s.MaxPlayers, s.Status))
	}
	return out
}

func (c *Console) create(args []string) []string {
	if len(args) < 1 {
		return []string{"usage: rooms create <name> [max] [map] [mode]"}
	}
	name := args[0]
	maxPlayers := room.MaxPlayersHardCap
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			maxPlayers = n
		}
	}
	mapID := c.defaultMap
	if len(args) >= 3 {
		mapID = args[2]
	}
	mode := "deathmatch"
	if len(args) >= 4 {
		mode = args[3]
	}

	m, err := game.LoadMap(c.mapDir, mapID)
	if err != nil {
		return []string{fmt.Sprintf("rooms create failed: %v", err)}
	}
	cfg := room.Config{
		Name:            name,
		MaxPlayers:      maxPlayers,
		MapID:           mapID,
		Mode:            mode,
		TickRate:        60,
		ProtocolVersion: "1",
	}
	handle, err := c.manager.CreateRoom(cfg, m)
	if err != nil {
		return []string{fmt.Sprintf("rooms create failed: %v", err)}
	}
	return []string{fmt.Sprintf("created %s (%s)", handle.ID(), name)}
}

func (c *Console) close(args []string) []string {
	if len(args) < 1 {
		return []string{"usage: rooms close <ref> [reason]"}
	}
	reason := "admin_close"
	if len(args) >= 2 {
		reason = strings.Join(args[1:], " ")
	}
	if err := c.manager.CloseRoom(args[0], reason); err != nil {
		return []string{fmt.Sprintf("rooms close failed: %v", err)}
	}
	return []string{"closed " + args[0]}
}

func (c *Console) info(args []string) []string {
	if len(args) < 1 {
		return []string{"usage: rooms info <ref>"}
	}
	info, ok := c.manager.RoomInfo(args[0])
	if !ok {
		return []string{"rooms info failed: room_not_found"}
	}
	out := []string{fmt.Sprintf("room %s %s players=%d/%d tick=%d status=%s",
		info.Summary.RoomID, info.Summary.Name, info.Summary.CurrentPlayers,
		info.Summary.MaxPlayers, info.Tick, info.Summary.Status)}
	for _, p := range info.Players {
		out = append(out, fmt.Sprintf("  %d %s", p.ID, p.Username))
	}
	return out
}

func (c *Console) set(args []string) []string {
	if len(args) < 3 || args[1] != "maxPlayers" {
		return []string{"usage: rooms set <ref> maxPlayers <n>"}
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return []string{"rooms set failed: invalid number"}
	}
	if err := c.manager.SetRoomMaxPlayers(args[0], n); err != nil {
		return []string{fmt.Sprintf("rooms set failed: %v", err)}
	}
	return []string{fmt.Sprintf("set %s maxPlayers=%d", args[0], n)}
}

func (c *Console) rename(args []string) []string {
	if len(args) < 2 {
		return []string{"usage: rooms rename <ref> <newName>"}
	}
	if err := c.manager.RenameRoom(args[0], args[1]); err != nil {
		return []string{fmt.Sprintf("rooms rename failed: %v", err)}
	}
	return []string{fmt.Sprintf("renamed %s to %s", args[0], args[1])}
}

func (c *Console) kick(args []string) []string {
	if len(args) < 2 {
		return []string{"usage: rooms kick <ref> <player_id>"}
	}
	playerID, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return []string{"rooms kick failed: invalid player id"}
	}
	removed, err := c.manager.Kick(args[0], playerID, "admin_kick")
	if err != nil {
		return []string{fmt.Sprintf("rooms kick failed: %v", err)}
	}
	if !removed {
		return []string{"rooms kick: player not in room"}
	}
	return []string{fmt.Sprintf("kicked %d from %s", playerID, args[0])}
}

func (c *Console) move(args []string) []string {
	if len(args) < 2 {
		return []string{"usage: rooms move <player_id> <target_ref>"}
	}
	playerID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return []string{"rooms move failed: invalid player id"}
	}
	out := room.NewOutbound()
	if _, rejected := c.manager.MovePlayer(playerID, args[1], fmt.Sprintf("player%d", playerID), out); rejected != nil {
		return []string{"rooms move failed"}
	}
	return []string{fmt.Sprintf("moved %d to %s", playerID, args[1])}
}
