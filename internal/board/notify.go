package board

// NoticeLevel distinguishes success toasts from error toasts.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short user-facing outcome message.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// Notifier receives the outcome of every board operation.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// discard drops every notice.
var discard = NotifierFunc(func(Notice) {})
