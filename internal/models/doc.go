// Package models holds the persistent records of the exam service.
package models

// All lists every model for schema migration, parents first.
func All() []interface{} {
	return []interface{}{
		&Subject{},
		&Question{},
		&Candidate{},
		&ExamSession{},
		&SessionAnswer{},
	}
}
