package vm

import "time"

// timeNowPlusMillis computes the wake time for Sleep(ms)/Yield(0) (spec
// §4.5: "Suspended coroutines resume no earlier than WakeTime").
func timeNowPlusMillis(ms int64) time.Time {
	return time.Now().Add(time.Duration(ms) * time.Millisecond)
}
