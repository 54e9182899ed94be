package model

// All lists every table the engine owns or reads, in migration order.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&JobCategory{},
		&InterviewSession{},
		&Turn{},
		&Feedback{},
		&UsageRecord{},
	}
}
