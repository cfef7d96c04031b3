package wire

// MessageType identifies the payload carried by a frame (spec.md §3.5).
type MessageType uint8

const (
	KeepAlive          MessageType = 0
	ConnectionAccepted MessageType = 1
	ConnectionRefused  MessageType = 2
	DataUpdate         MessageType = 3
	LocalMapUpdate     MessageType = 4
	Command            MessageType = 5
	CommandResult      MessageType = 6
)

func (t MessageType) String() string {
	switch t {
	case KeepAlive:
		return "KEEP_ALIVE"
	case ConnectionAccepted:
		return "CONNECTION_ACCEPTED"
	case ConnectionRefused:
		return "CONNECTION_REFUSED"
	case DataUpdate:
		return "DATA_UPDATE"
	case LocalMapUpdate:
		return "LOCAL_MAP_UPDATE"
	case Command:
		return "COMMAND"
	case CommandResult:
		return "COMMAND_RESULT"
	default:
		return "UNKNOWN"
	}
}
