package fpl

// Fields that FPL serves as null are pointers; everything else tolerates absence
// through zero values.

type bootstrapStaticPayload struct {
	Events []eventPayload `json:"events"`
}

type eventPayload struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	DeadlineTime *string `json:"deadline_time"`
	Finished     bool    `json:"finished"`
	DataChecked  bool    `json:"data_checked"`
	IsCurrent    bool    `json:"is_current"`
}

type fixturePayload struct {
	ID          int64   `json:"id"`
	Event       *int    `json:"event"`
	KickoffTime *string `json:"kickoff_time"`
	Started     *bool   `json:"started"`
	Finished    bool    `json:"finished"`
}

type eventStatusPayload struct {
	Status []eventStatusItem `json:"status"`
}

type eventStatusItem struct {
	BonusAdded bool   `json:"bonus_added"`
	Date       string `json:"date"`
	Event      int    `json:"event"`
	Points     string `json:"points"`
}

type entryHistoryPayload struct {
	Current []entryHistoryRow `json:"current"`
}

type entryHistoryRow struct {
	Event              int `json:"event"`
	Points             int `json:"points"`
	TotalPoints        int `json:"total_points"`
	EventTransfersCost int `json:"event_transfers_cost"`
}

type eventLivePayload struct {
	Elements []liveElement `json:"elements"`
}

type liveElement struct {
	ID    int64 `json:"id"`
	Stats struct {
		TotalPoints int `json:"total_points"`
	} `json:"stats"`
}

type entryPicksPayload struct {
	Picks []pickPayload `json:"picks"`
}

type pickPayload struct {
	Element    int64 `json:"element"`
	Position   int   `json:"position"`
	Multiplier int   `json:"multiplier"`
}
