package allowlist

import (
	"regexp"
	"time"
)

var macRe = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

// ValidMAC reports whether s is six hex pairs separated by ':' or '-'.
func ValidMAC(s string) bool {
	return macRe.MatchString(s)
}

// Entry is one allowlisted MAC address.
type Entry struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MACAddress string    `gorm:"column:mac_address;type:text;index"`
	Created    time.Time `gorm:"column:created;autoCreateTime;<-:create"`
	Memo       string    `gorm:"column:memo;type:text"`
}

func (Entry) TableName() string {
	return "allowed"
}

func (e Entry) String() string {
	return e.MACAddress
}
