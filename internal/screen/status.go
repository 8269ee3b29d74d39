// Package screen holds the state of every covid screen as immutable snapshots.
package screen

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDateUnavailable = errors.New("no data available for this date")
	ErrNotReady        = errors.New("screen data is not loaded")
	ErrUnknownCountry  = errors.New("unknown country")
)

// now is replaced in tests.
var now = time.Now

// Status is one of Idle, Loading, Ready or Failed.
type Status interface {
	isStatus()
}

type Idle struct{}

type Loading struct{}

type Ready struct{}

type Failed struct {
	Message string
}

func (Idle) isStatus()    {}
func (Loading) isStatus() {}
func (Ready) isStatus()   {}
func (Failed) isStatus()  {}

// Label is a short human readable form of the status.
func Label(s Status) string {
	switch s := s.(type) {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed: " + s.Message
	default:
		panic(fmt.Sprintf("unexpected screen status %T", s))
	}
}

func IsReady(s Status) bool {
	_, ok := s.(Ready)
	return ok
}
