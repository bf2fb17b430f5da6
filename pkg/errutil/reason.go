package errutil

type Reason string

const (
	ReasonInvalidAmount     Reason = "INVALID_AMOUNT"
	ReasonInvalidPercentage Reason = "INVALID_PERCENTAGE"
	ReasonInvalidActivity   Reason = "INVALID_ACTIVITY"
	ReasonInvalidPeriod     Reason = "INVALID_PERIOD"
	ReasonPeriodOpen        Reason = "PERIOD_OPEN"
	ReasonPeriodClosing     Reason = "PERIOD_CLOSING"
	ReasonCampaignNotFound  Reason = "CAMPAIGN_NOT_FOUND"
	ReasonCampaignInactive  Reason = "CAMPAIGN_INACTIVE"
	ReasonCampaignExists    Reason = "CAMPAIGN_EXISTS"
	ReasonPostNotFound      Reason = "POST_NOT_FOUND"
	ReasonDuplicateGrant    Reason = "DUPLICATE_GRANT"
	ReasonGrantNotFound     Reason = "GRANT_NOT_FOUND"
	ReasonAlreadyClaimed    Reason = "ALREADY_CLAIMED"
	ReasonForbidden         Reason = "FORBIDDEN"
	ReasonStoreUnavailable  Reason = "STORE_UNAVAILABLE"
)

// Sentinels for errors.Is. Matching only looks at Reason.
var (
	ErrInvalidAmount     = BaseError{Code: StatusBadRequest, Reason: ReasonInvalidAmount}
	ErrInvalidPercentage = BaseError{Code: StatusBadRequest, Reason: ReasonInvalidPercentage}
	ErrInvalidActivity   = BaseError{Code: StatusBadRequest, Reason: ReasonInvalidActivity}
	ErrInvalidPeriod     = BaseError{Code: StatusBadRequest, Reason: ReasonInvalidPeriod}
	ErrPeriodOpen        = BaseError{Code: StatusUnprocessableEntity, Reason: ReasonPeriodOpen}
	ErrPeriodClosing     = BaseError{Code: StatusConflict, Reason: ReasonPeriodClosing}
	ErrCampaignNotFound  = BaseError{Code: StatusNotFound, Reason: ReasonCampaignNotFound}
	ErrCampaignInactive  = BaseError{Code: StatusUnprocessableEntity, Reason: ReasonCampaignInactive}
	ErrCampaignExists    = BaseError{Code: StatusConflict, Reason: ReasonCampaignExists}
	ErrPostNotFound      = BaseError{Code: StatusNotFound, Reason: ReasonPostNotFound}
	ErrDuplicateGrant    = BaseError{Code: StatusConflict, Reason: ReasonDuplicateGrant}
	ErrGrantNotFound     = BaseError{Code: StatusNotFound, Reason: ReasonGrantNotFound}
	ErrAlreadyClaimed    = BaseError{Code: StatusConflict, Reason: ReasonAlreadyClaimed}
	ErrForbidden         = BaseError{Code: StatusForbidden, Reason: ReasonForbidden}
	ErrStoreUnavailable  = BaseError{Code: StatusServiceUnavailable, Reason: ReasonStoreUnavailable}
)

func InvalidAmount(msg string) error {
	return BadRequest(msg, nil, WithReason(ReasonInvalidAmount))
}

func InvalidPercentage(msg string) error {
	return BadRequest(msg, nil, WithReason(ReasonInvalidPercentage))
}

func CampaignNotFound(campaignID string) error {
	return NotFound("campaign not found", nil,
		WithReason(ReasonCampaignNotFound),
		WithDetails(Detail{Field: "campaign_id", Message: campaignID}),
	)
}

func CampaignInactive(campaignID string) error {
	return UnprocessableEntity("campaign is not accepting contributions", nil,
		WithReason(ReasonCampaignInactive),
		WithDetails(Detail{Field: "campaign_id", Message: campaignID}),
	)
}

func DuplicateGrant(err error) error {
	return Conflict("grant already issued for this period", err, WithReason(ReasonDuplicateGrant))
}

func GrantNotFound(grantID string) error {
	return NotFound("grant not found", nil,
		WithReason(ReasonGrantNotFound),
		WithDetails(Detail{Field: "grant_id", Message: grantID}),
	)
}

func AlreadyClaimed(grantID string) error {
	return Conflict("grant already claimed", nil,
		WithReason(ReasonAlreadyClaimed),
		WithDetails(Detail{Field: "grant_id", Message: grantID}),
	)
}

func NotOwner(msg string) error {
	return Forbidden(msg, nil, WithReason(ReasonForbidden))
}

// StoreUnavailable wraps a transient store failure. The engine never retries it.
func StoreUnavailable(err error) error {
	return ServiceUnavailable("store unavailable", err, WithReason(ReasonStoreUnavailable))
}

func InvalidActivity(msg string) error {
	return BadRequest(msg, nil, WithReason(ReasonInvalidActivity))
}

func InvalidPeriod(msg string) error {
	return BadRequest(msg, nil, WithReason(ReasonInvalidPeriod))
}

func PeriodOpen(periodType string) error {
	return UnprocessableEntity("period has not ended yet", nil,
		WithReason(ReasonPeriodOpen),
		WithDetails(Detail{Field: "period_type", Message: periodType}),
	)
}

func PeriodClosing(periodType string) error {
	return Conflict("period close already in progress", nil,
		WithReason(ReasonPeriodClosing),
		WithDetails(Detail{Field: "period_type", Message: periodType}),
	)
}

func PostNotFound(postID string) error {
	return NotFound("post not found", nil,
		WithReason(ReasonPostNotFound),
		WithDetails(Detail{Field: "post_id", Message: postID}),
	)
}
