package savings

import "time"

// WithdrawalWindow decides whether the tax vault can be released at a given
// moment. The account holder has no say in it.
type WithdrawalWindow interface {
	Open(now time.Time) bool
}

// SeasonalWindow opens during one calendar month each year. Month zero
// keeps it permanently closed.
type SeasonalWindow struct {
	Month time.Month
}

func (w SeasonalWindow) Open(now time.Time) bool {
	return w.Month != 0 && now.Month() == w.Month
}

type ClosedWindow struct{}

func (ClosedWindow) Open(time.Time) bool { return false }

type OpenWindow struct{}

func (OpenWindow) Open(time.Time) bool { return true }
