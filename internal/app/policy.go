package app

import "github.com/dkeye/Nearby/internal/domain"

type BackpressureAction int

const (
	KickMember BackpressureAction = iota
	DropFrame
)

// Policy decides what happens to a session whose outbound queue is full.
type Policy interface {
	OnBackPressure(uid domain.UserID, err error) BackpressureAction
}

// SimplePolicy treats every slow consumer as dead.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.UserID, error) BackpressureAction {
	return KickMember
}

// LenientPolicy drops the frame and keeps the session.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(domain.UserID, error) BackpressureAction {
	return DropFrame
}
