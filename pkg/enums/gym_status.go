package enums

// GymStatus marks whether a partner gym currently takes drops.
type GymStatus string

const (
	GymStatusActive   GymStatus = "Active"
	GymStatusInactive GymStatus = "Inactive"
)

func (s GymStatus) String() string {
	return string(s)
}
