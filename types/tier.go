package types

// Tier is a retention class. Tiers are ordered by increasing willingness
// to lose information: hot < warm < cold < gone.
type Tier int

const (
	// TierHot messages are left untouched.
	TierHot Tier = iota

	// TierWarm messages lose hidden reasoning and large tool output shrinks to key lines.
	TierWarm

	// TierCold messages have tool output reduced to a one-line summary,
	// long assistant text truncated and bulky synthetic system text removed.
	TierCold

	// TierGone messages are eligible for physical removal.
	TierGone
)

var tierNames = [...]string{"hot", "warm", "cold", "gone"}

// String returns the lower-case tier name.
func (t Tier) String() string {
	if t < TierHot || t > TierGone {
		return "unknown"
	}
	return tierNames[t]
}

// AtLeast reports whether t is as deep as other or deeper.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}
