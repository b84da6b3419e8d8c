package domain

import "time"

// VisibleAt reports whether a quiz belongs in the active listing at the given
// time: active, past its scheduled start (if any) and before its scheduled
// end (if any).
func VisibleAt(quiz Quiz, now time.Time) bool {
	if !quiz.Active {
		return false
	}
	if quiz.ScheduledStart != nil && !quiz.ScheduledStart.Before(now) {
		return false
	}
	if quiz.ScheduledEnd != nil && !quiz.ScheduledEnd.After(now) {
		return false
	}
	return true
}

// CheckAttemptable decides whether a user may submit an attempt for a quiz at
// time now. prior is the user's existing attempt, or nil if none exists.
// Violations come back as distinct error kinds so callers can render precise
// messages. An inactive quiz is reported as not found rather than leaking its
// existence.
//
// This check runs advisorily when quiz details are fetched and
// authoritatively again at submission time; only the write-time result may
// feed the scoring decision.
func CheckAttemptable(quiz Quiz, prior *Attempt, now time.Time) error {
	if !quiz.Active {
		return ErrQuizNotFound
	}
	if quiz.ScheduledStart != nil && now.Before(*quiz.ScheduledStart) {
		return ErrQuizNotStarted
	}
	if quiz.ScheduledEnd != nil && now.After(*quiz.ScheduledEnd) {
		return ErrQuizExpired
	}
	if prior != nil && prior.Completed {
		return ErrAlreadyCompleted
	}
	return nil
}
