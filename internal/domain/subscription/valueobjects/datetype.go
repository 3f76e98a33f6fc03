package valueobjects

// DateType names a slot of a subscription's date schedule.
type DateType string

const (
	DateCreated          DateType = "date_created"
	DateStart            DateType = "start"
	DateTrialEnd         DateType = "trial_end"
	DateNextPayment      DateType = "next_payment"
	DateLastOrderCreated DateType = "last_order_date_created"
	DateEnd              DateType = "end"

	// DateEndOfPrepaidTerm can be calculated but is never stored.
	DateEndOfPrepaidTerm DateType = "end_of_prepaid_term"
)

// AllDateTypes lists the stored slots in schedule order.
var AllDateTypes = []DateType{
	DateCreated,
	DateStart,
	DateTrialEnd,
	DateNextPayment,
	DateLastOrderCreated,
	DateEnd,
}

var dateLabels = map[DateType]string{
	DateCreated:          "created",
	DateStart:            "start",
	DateTrialEnd:         "trial end",
	DateNextPayment:      "next payment",
	DateLastOrderCreated: "last payment",
	DateEnd:              "end",
	DateEndOfPrepaidTerm: "end of prepaid term",
}

func (d DateType) String() string {
	return string(d)
}

// IsValid reports whether d is a stored slot.
func (d DateType) IsValid() bool {
	for _, t := range AllDateTypes {
		if t == d {
			return true
		}
	}
	return false
}

// Label returns the human readable name used in validation messages.
func (d DateType) Label() string {
	if label, ok := dateLabels[d]; ok {
		return label
	}
	return string(d)
}

// IsImmutable reports whether the slot can only be updated, never deleted.
func (d DateType) IsImmutable() bool {
	return d == DateStart || d == DateLastOrderCreated
}

func ParseDateType(value string) (DateType, bool) {
	d := DateType(value)
	return d, d.IsValid()
}
