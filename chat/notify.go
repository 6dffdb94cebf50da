package chat

// Level classifies a Notice.
type Level int

const (
	// LevelInfo reports an action whose outcome changed unexpectedly, such
	// as a fallback to another session.
	LevelInfo Level = iota
	// LevelError reports a failed completion request.
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notice is a transient user-facing message.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier receives notices from the store. Notify is called without the
// store lock held and may call back into the store.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

var fallbackNotice = Notice{
	Level:   LevelInfo,
	Title:   "Session",
	Message: "Switched to fallback session",
}
