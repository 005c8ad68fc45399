package errors

import "fmt"

var (
	ErrMessageDecode  = fmt.Errorf("malformed chat message")
	ErrUsernameTaken  = fmt.Errorf("username already taken")
	ErrEmptyUsername  = fmt.Errorf("username is empty")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrStreamKey      = fmt.Errorf("invalid stream key")
	ErrAlreadyLive    = fmt.Errorf("a publisher is already live")
	ErrInvalidGateKey = fmt.Errorf("invalid gate key")
	ErrPortsCollide   = fmt.Errorf("HTTP and RTMP ports cannot be the same")
)
