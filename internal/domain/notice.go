package domain

type NoticeKind string

const (
	// NoticeCapacity blocks the operation that triggered it.
	NoticeCapacity NoticeKind = "capacity"
	// NoticeCrossPlatform is informational; the operation still proceeds.
	NoticeCrossPlatform NoticeKind = "cross_platform"
)

// Notice is a user-visible message raised as a side effect of a slot operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Notifier receives notices raised by the slot store.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
