package chat

import "fmt"

// Topic destinations shared by the client and the dev relay. One key per
// topic class per room (or user), so e.g. chat/42 and read/42 are distinct
// live subscriptions.
func ChatTopic(roomID int64) string     { return fmt.Sprintf("/topic/chat/%d", roomID) }
func ReadTopic(roomID int64) string     { return fmt.Sprintf("/topic/read/%d", roomID) }
func CalendarTopic(roomID int64) string { return fmt.Sprintf("/topic/calendar/%d", roomID) }
func EmojiTopic(roomID int64) string    { return fmt.Sprintf("/topic/emoji/%d", roomID) }
func UserTopic(userID int64) string     { return fmt.Sprintf("/topic/user/%d", userID) }

// SendDestination is the single outbound publish destination for new
// messages.
const SendDestination = "/app/chat/message"

const jsonContentType = "application/json"
