package util

import (
	"time"
	_ "time/tzdata"
)

var campaignLocation *time.Location

func init() {
	var err error
	campaignLocation, err = time.LoadLocation("Africa/Douala")
	if err != nil {
		campaignLocation = time.FixedZone("WAT", 60*60)
	}
}

// CampaignLocation returns the Africa/Douala zone used for scheduling and display.
func CampaignLocation() *time.Location {
	return campaignLocation
}

// LoadLocation resolves name, falling back to the campaign zone when name is empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return campaignLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return campaignLocation
	}
	return loc
}

// NowMillis returns the current unix time in milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
