package zscore

import "fmt"

// Tier is one of seven ordered bands partitioning the real line of z-scores.
type Tier int

// Tiers in ascending z order.
const (
	SignificantlyBelow Tier = iota
	Below
	SlightlyBelow
	AtMean
	SlightlyAbove
	Above
	SignificantlyAbove
)

// Tier thresholds in standard deviations.
const (
	notableThreshold     = 1.0
	significantThreshold = 2.0
)

var tierNames = [...]string{
	SignificantlyBelow: "SignificantlyBelow",
	Below:              "Below",
	SlightlyBelow:      "SlightlyBelow",
	AtMean:             "AtMean",
	SlightlyAbove:      "SlightlyAbove",
	Above:              "Above",
	SignificantlyAbove: "SignificantlyAbove",
}

var tierInterpretations = [...]string{
	SignificantlyBelow: "Your result is significantly below average. Consider reviewing areas for improvement.",
	Below:              "Your result is below average, indicating room for improvement relative to the program mean.",
	SlightlyBelow:      "Your result is slightly below average, showing minor negative deviation from the mean.",
	AtMean:             "Your result is exactly at the program average, indicating typical performance.",
	SlightlyAbove:      "Your result is slightly above average, showing positive deviation from the mean.",
	Above:              "Your result is above average, indicating good performance relative to the program mean.",
	SignificantlyAbove: "Your result is significantly above average. This places you in the top tier of performance.",
}

// Tiers returns every tier in ascending order.
func Tiers() []Tier {
	return []Tier{SignificantlyBelow, Below, SlightlyBelow, AtMean, SlightlyAbove, Above, SignificantlyAbove}
}

// Classify places z into its tier. Boundaries at +1 and +2 belong to the
// upper band, boundaries at -1 and -2 to the lower band.
func Classify(z float64) Tier {
	switch {
	case z >= significantThreshold:
		return SignificantlyAbove
	case z >= notableThreshold:
		return Above
	case z > 0:
		return SlightlyAbove
	case z == 0:
		return AtMean
	case z > -notableThreshold:
		return SlightlyBelow
	case z > -significantThreshold:
		return Below
	default:
		return SignificantlyBelow
	}
}

func (t Tier) valid() bool { return t >= SignificantlyBelow && t <= SignificantlyAbove }

// String returns the tier name, e.g. "SignificantlyAbove".
func (t Tier) String() string {
	if !t.valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// Interpretation returns the fixed sentence describing the tier.
func (t Tier) Interpretation() string {
	if !t.valid() {
		return ""
	}
	return tierInterpretations[t]
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(tierNames[t]), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier maps a tier name back to its Tier.
func ParseTier(name string) (Tier, error) {
	for i, n := range tierNames {
		if n == name {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

// Qualifier tells the presentation layer how to colour a result. It plays no
// part in the computation.
type Qualifier string

// Display qualifiers.
const (
	Positive Qualifier = "positive"
	Negative Qualifier = "negative"
	Neutral  Qualifier = "neutral"
)

// QualifierOf returns the display qualifier for z.
func QualifierOf(z float64) Qualifier {
	switch {
	case z > 0:
		return Positive
	case z < 0:
		return Negative
	default:
		return Neutral
	}
}
