package cron

import (
	"testing"
)

func FuzzScheduleValidation(f *testing.F) {
	f.Add("*/15 * * * *")
	f.Add("*/5 * * * *")
	f.Add("0 3 * * *")
	f.Add("* * * * *")
	f.Add("invalid")
	f.Add("")
	f.Add("60 * * * *")
	f.Add("0 25 * * *")

	f.Fuzz(func(_ *testing.T, expr string) {
		// Arbitrary input must yield an error at worst, never a panic.
		_ = validSchedule(expr)
	})
}
