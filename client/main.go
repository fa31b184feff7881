package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"

	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/network"
)

const usage = `commands:
  create                 create a room
  join <code>            join a room
  leave                  leave the current room
  pool <name>,<name>...  set the room's role pool
  choice on|off          allow picking between two roles
  expose on|off          show role types once the game is active
  start                  start a round
  select <role name>     pick one of the offered roles
  confirm                confirm your team
  reveal | conceal       show or hide your role
  decide <role name>     Chosen One decision
  cult <id>,<id>...      convert players into cultists
  end [<id>,<id>...]     end the round with the given winners
  roles | stats [<id>]   query the catalog or player stats`

type client struct {
	conn     *websocket.Conn
	playerID string

	mu       sync.Mutex
	roomCode string
}

// send formats and sends a message to the WebSocket server.
func (c *client) send(msgID uint16, payload any) error {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

func (c *client) setRoom(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

func (c *client) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.DecodePacket(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}

		switch packet.MsgID {
		case network.MsgTypeRoomCreated, network.MsgTypeJoinedRoom, network.MsgTypeReconnectedToRoom, network.MsgTypeLoggedIn:
			var v struct {
				RoomCode string `json:"roomCode"`
			}
			if json.Unmarshal(packet.Data, &v) == nil && v.RoomCode != "" {
				c.setRoom(v.RoomCode)
			}
		case network.MsgTypeLeftRoom:
			c.setRoom("")
		}
		printer(packet.MsgID).Printf("<- RECV (ID: %d): %s\n", packet.MsgID, string(packet.Data))
	}
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	gameColor  = color.New(color.FgYellow)
	roomColor  = color.New(color.FgCyan)
	plainColor = color.New(color.Reset)
)

func printer(msgID uint16) *color.Color {
	switch {
	case msgID == network.MsgTypeError:
		return errorColor
	case msgID >= network.MsgTypeSelectRoleOptions && msgID <= network.MsgTypeGameEnded:
		return gameColor
	case msgID >= network.MsgTypeRoomCreated && msgID <= network.MsgTypeRolesPoolUpdated:
		return roomColor
	default:
		return plainColor
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// handle turns one input line into a request.
func (c *client) handle(line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	code := c.room()
	on := arg == "on"

	switch cmd {
	case "create":
		return c.send(network.MsgTypeCreateRoom, models.CreateRoomRequest{PlayerID: c.playerID})
	case "join":
		return c.send(network.MsgTypeJoinRoom, models.JoinRoomRequest{PlayerID: c.playerID, RoomCode: arg})
	case "leave":
		return c.send(network.MsgTypeLeaveRoom, models.LeaveRoomRequest{PlayerID: c.playerID, RoomCode: code})
	case "pool":
		var pool []models.Role
		for _, name := range splitList(arg) {
			pool = append(pool, models.Role{Name: name})
		}
		return c.send(network.MsgTypeUpdateRolePool, models.UpdateRolePoolRequest{RoomCode: code, Roles: pool})
	case "choice":
		return c.send(network.MsgTypeUpdateRoomSettings, models.UpdateRoomSettingsRequest{RoomCode: code, AllowsRoleChoice: &on})
	case "expose":
		return c.send(network.MsgTypeUpdateRoomSettings, models.UpdateRoomSettingsRequest{RoomCode: code, ExposesRolesOnStart: &on})
	case "start":
		return c.send(network.MsgTypeStartGame, models.StartGameRequest{RoomCode: code})
	case "select":
		return c.send(network.MsgTypeSelectRole, models.SelectRoleRequest{PlayerID: c.playerID, RoomCode: code, Role: &models.Role{Name: arg}})
	case "confirm":
		return c.send(network.MsgTypeConfirmTeam, models.PlayerRoomRequest{PlayerID: c.playerID, RoomCode: code})
	case "reveal":
		return c.send(network.MsgTypeRevealRole, models.PlayerRoomRequest{PlayerID: c.playerID, RoomCode: code})
	case "conceal":
		return c.send(network.MsgTypeConcealRole, models.PlayerRoomRequest{PlayerID: c.playerID, RoomCode: code})
	case "decide":
		return c.send(network.MsgTypeChosenOneDecision, models.ChosenOneDecisionRequest{PlayerID: c.playerID, RoomCode: code, Decision: arg})
	case "cult":
		return c.send(network.MsgTypeCultification, models.CultificationRequest{PlayerID: c.playerID, RoomCode: code, CultistIDs: splitList(arg)})
	case "end":
		return c.send(network.MsgTypeEndGame, models.EndGameRequest{RoomCode: code, WinnerIDs: splitList(arg)})
	case "roles":
		return c.send(network.MsgTypeGetRoles, nil)
	case "stats":
		return c.send(network.MsgTypeGetStats, models.GetStatsRequest{PlayerID: arg})
	case "", "help":
		log.Println(usage)
	default:
		log.Printf("unknown command %q", cmd)
	}
	return nil
}

func main() {
	addr := flag.String("addr", "localhost:9998", "game server address")
	playerID := flag.String("player", "", "player id")
	name := flag.String("name", "", "display name")
	flag.Parse()
	if *playerID == "" {
		log.Fatal("-player is required")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn, playerID: *playerID}
	done := make(chan struct{})
	go c.readLoop(done)

	if err := c.send(network.MsgTypeLogin, models.LoginRequest{PlayerID: *playerID, DisplayName: *name}); err != nil {
		log.Println("Write error:", err)
		return
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	log.Println(usage)
	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := c.send(network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := c.handle(line); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
