package models

import "github.com/wsdottie/dottie-go/internal/wsdate"

// RoadwayLocation is the shared WSDOT location shape
type RoadwayLocation struct {
	Description string  `json:"Description"`
	Direction   string  `json:"Direction"`
	Latitude    float64 `json:"Latitude"`
	Longitude   float64 `json:"Longitude"`
	MilePost    float64 `json:"MilePost"`
	RoadName    string  `json:"RoadName"`
}

// BorderCrossing is a wait time at a US/Canada crossing
type BorderCrossing struct {
	BorderCrossingLocation *RoadwayLocation `json:"BorderCrossingLocation"`
	CrossingName           string           `json:"CrossingName"`
	Time                   wsdate.Time      `json:"Time"`
	WaitTime               int              `json:"WaitTime"`
}

// HighwayAlert is an incident or construction notice
type HighwayAlert struct {
	AlertID              int              `json:"AlertID"`
	County               *string          `json:"County"`
	EndRoadwayLocation   *RoadwayLocation `json:"EndRoadwayLocation"`
	EndTime              wsdate.Time      `json:"EndTime"`
	EventCategory        string           `json:"EventCategory"`
	EventStatus          string           `json:"EventStatus"`
	ExtendedDescription  *string          `json:"ExtendedDescription"`
	HeadlineDescription  string           `json:"HeadlineDescription"`
	LastUpdatedTime      wsdate.Time      `json:"LastUpdatedTime"`
	Priority             string           `json:"Priority"`
	Region               string           `json:"Region"`
	StartRoadwayLocation *RoadwayLocation `json:"StartRoadwayLocation"`
	StartTime            wsdate.Time      `json:"StartTime"`
}

// PassRestriction is a travel restriction in one direction over a pass
type PassRestriction struct {
	RestrictionText string `json:"RestrictionText"`
	TravelDirection string `json:"TravelDirection"`
}

// MountainPassCondition is the current state of a mountain pass
type MountainPassCondition struct {
	DateUpdated             wsdate.Time     `json:"DateUpdated"`
	ElevationInFeet         int             `json:"ElevationInFeet"`
	Latitude                float64         `json:"Latitude"`
	Longitude               float64         `json:"Longitude"`
	MountainPassID          int             `json:"MountainPassId"`
	MountainPassName        string          `json:"MountainPassName"`
	RestrictionOne          PassRestriction `json:"RestrictionOne"`
	RestrictionTwo          PassRestriction `json:"RestrictionTwo"`
	RoadCondition           string          `json:"RoadCondition"`
	TemperatureInFahrenheit *int            `json:"TemperatureInFahrenheit"`
	TravelAdvisoryActive    bool            `json:"TravelAdvisoryActive"`
	WeatherCondition        string          `json:"WeatherCondition"`
}

// TravelTimeRoute is the current and average travel time between two points
type TravelTimeRoute struct {
	TravelTimeID int             `json:"TravelTimeID"`
	Name         string          `json:"Name"`
	Description  string          `json:"Description"`
	AverageTime  int             `json:"AverageTime"`
	CurrentTime  int             `json:"CurrentTime"`
	Distance     float64         `json:"Distance"`
	TimeUpdated  wsdate.Time     `json:"TimeUpdated"`
	StartPoint   RoadwayLocation `json:"StartPoint"`
	EndPoint     RoadwayLocation `json:"EndPoint"`
}

// VesselLocation is the live position of a WSF vessel
type VesselLocation struct {
	VesselID                int         `json:"VesselID"`
	VesselName              string      `json:"VesselName"`
	Mmsi                    *int        `json:"Mmsi"`
	DepartingTerminalID     int         `json:"DepartingTerminalID"`
	DepartingTerminalName   string      `json:"DepartingTerminalName"`
	DepartingTerminalAbbrev string      `json:"DepartingTerminalAbbrev"`
	ArrivingTerminalID      *int        `json:"ArrivingTerminalID"`
	ArrivingTerminalName    *string     `json:"ArrivingTerminalName"`
	ArrivingTerminalAbbrev  *string     `json:"ArrivingTerminalAbbrev"`
	Latitude                float64     `json:"Latitude"`
	Longitude               float64     `json:"Longitude"`
	Speed                   float64     `json:"Speed"`
	Heading                 int         `json:"Heading"`
	InService               bool        `json:"InService"`
	AtDock                  bool        `json:"AtDock"`
	LeftDock                wsdate.Time `json:"LeftDock"`
	Eta                     wsdate.Time `json:"Eta"`
	ScheduledDeparture      wsdate.Time `json:"ScheduledDeparture"`
	OpRouteAbbrev           []string    `json:"OpRouteAbbrev"`
	VesselPositionNum       *int        `json:"VesselPositionNum"`
	TimeStamp               wsdate.Time `json:"TimeStamp"`
}
