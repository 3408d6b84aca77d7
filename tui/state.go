package tui

type state int

const (
	downloadingState state = iota
	mergingState
	doneState
	errorState
)
