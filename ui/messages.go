package ui

import (
	"carechat/chat"
	"carechat/hospital"
)

// storeChangedMsg is sent whenever the session store's observable state
// changes.
type storeChangedMsg struct{}

// noticeMsg carries a store notice into the program.
type noticeMsg struct {
	notice chat.Notice
}

// sendDoneMsg reports the end of a SendMessage call.
type sendDoneMsg struct {
	err error
}

type toastExpiredMsg struct {
	id int
}

type hospitalsLoadedMsg struct {
	location  *hospital.Location
	hospitals []hospital.Hospital
	err       error
}

type clipboardMsg struct {
	what string
	err  error
}
