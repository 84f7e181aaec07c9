package relay

import (
	"strconv"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/moabook/chatlink/internal/chat"
	"github.com/moabook/chatlink/internal/transport"
)

// App builds the fiber application: the websocket endpoint plus the REST
// fixtures the client's api package consumes.
func (r *Relay) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chatlink relay",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(r.handleWS))

	app.Get("/api/chat/rooms", r.listRooms)
	app.Get("/api/chat/rooms/:id/messages", r.roomMessages)
	return app
}

func (r *Relay) listRooms(c *fiber.Ctx) error {
	return c.JSON(r.RoomSummaries())
}

func (r *Relay) roomMessages(c *fiber.Ctx) error {
	roomID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid room id")
	}
	msgs := r.History(roomID)
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return c.JSON(msgs)
}

// handleWS runs one peer's STOMP session until the socket drops or the peer
// disconnects cleanly.
func (r *Relay) handleWS(ws *websocket.Conn) {
	nc := transport.NetConn(ws)
	reader := frame.NewReader(nc)
	writer := frame.NewWriter(nc)

	sess := newSession(uuid.NewString(), r.log)
	r.register(sess)

	pumpDone := make(chan struct{})
	go func() {
		sess.writePump(writer)
		close(pumpDone)
	}()
	defer func() {
		// drop closes the send channel; let the pump flush what it buffered
		// (a DISCONNECT receipt, typically) before the socket goes away.
		r.drop(sess)
		select {
		case <-pumpDone:
		case <-time.After(time.Second):
		}
	}()

	for {
		f, err := reader.Read()
		if err != nil {
			return
		}
		if f == nil {
			// heart-beat
			continue
		}
		if done := r.handleFrame(sess, f); done {
			return
		}
	}
}

func (r *Relay) handleFrame(s *session, f *frame.Frame) (done bool) {
	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		s.enqueue(frame.New(frame.CONNECTED,
			frame.Version, "1.2",
			frame.HeartBeat, "0,0",
		))

	case frame.SUBSCRIBE:
		id := f.Header.Get(frame.Id)
		dest := f.Header.Get(frame.Destination)
		if id == "" || dest == "" {
			s.enqueue(errorFrame("subscribe requires id and destination"))
			break
		}
		r.subscribe(s, id, dest)

	case frame.UNSUBSCRIBE:
		if id := f.Header.Get(frame.Id); id != "" {
			r.unsubscribe(s, id)
		}

	case frame.SEND:
		r.route(f.Header.Get(frame.Destination), f.Header.Get(frame.ContentType), f.Body)

	case frame.DISCONNECT:
		done = true

	default:
		r.log.Debug().Str("command", f.Command).Msg("ignore frame")
	}

	if receipt := f.Header.Get(frame.Receipt); receipt != "" {
		s.enqueue(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
	}
	return done
}

func errorFrame(message string) *frame.Frame {
	return frame.New(frame.ERROR, frame.Message, message)
}
