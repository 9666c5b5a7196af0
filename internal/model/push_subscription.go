package model

import "time"

// PushSubscription is a browser endpoint that receives group announcements.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"-"`
	Auth      string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	Groups []*Group `gorm:"many2many:subscription_group_mapping;" json:"-"`
}

// GroupIDs lists the followed groups in association order.
func (p *PushSubscription) GroupIDs() []string {
	ids := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}
