package tool

import (
	"fmt"
	"time"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

const (
	ScheduleOpen   = "open"
	ScheduleClosed = "closed"
)

type scheduleWindow struct {
	open  int // minutes since midnight, inclusive
	close int // minutes since midnight, inclusive
}

func parseScheduleWindow(openAt, closeAt string) (scheduleWindow, error) {
	open, err := parseClockMinutes(openAt)
	if err != nil {
		return scheduleWindow{}, fmt.Errorf("%w: open time: %v", contractx.ErrValidation, err)
	}
	closing, err := parseClockMinutes(closeAt)
	if err != nil {
		return scheduleWindow{}, fmt.Errorf("%w: close time: %v", contractx.ErrValidation, err)
	}
	if closing <= open {
		return scheduleWindow{}, fmt.Errorf("%w: close time must be after open time", contractx.ErrValidation)
	}
	return scheduleWindow{open: open, close: closing}, nil
}

func parseClockMinutes(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// checkSchedule is a total function: whatever the clock says, the answer is
// one of the two schedule states.
func (r *Registry) checkSchedule() string {
	now := r.clock()
	minutes := now.Hour()*60 + now.Minute()
	if minutes >= r.window.open && minutes <= r.window.close {
		return ScheduleOpen
	}
	return ScheduleClosed
}
