package taskname

const (
	// Period tasks
	PeriodCloseDaily  = "period:close:daily"
	PeriodCloseWeekly = "period:close:weekly"

	// Campaign tasks
	CampaignExpire = "campaign:expire"
)
