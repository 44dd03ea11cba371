package dottie

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/wsdottie/dottie-go/internal/catalog"
	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/wsdate"
)

type (
	BorderCrossing        = models.BorderCrossing
	HighwayAlert          = models.HighwayAlert
	MountainPassCondition = models.MountainPassCondition
	TravelTimeRoute       = models.TravelTimeRoute
	VesselLocation        = models.VesselLocation
	RoadwayLocation       = models.RoadwayLocation
)

// As converts a decoded value into T using its JSON field tags
func As[T any](v Value) (T, error) {
	var out T
	data, err := v.MarshalJSON()
	if err != nil {
		return out, err
	}
	if err := gojson.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("convert to %T: %w", out, err)
	}
	return out, nil
}

// FetchAs fetches an endpoint and converts the response into T
func FetchAs[T any](ctx context.Context, c Client, api, function string, params map[string]string) (T, error) {
	resp, err := c.Fetch(ctx, api, function, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](resp.Value)
}

func GetBorderCrossings(ctx context.Context, c Client) ([]BorderCrossing, error) {
	return FetchAs[[]BorderCrossing](ctx, c, "wsdot-border-crossings", "getBorderCrossings", nil)
}

func GetHighwayAlerts(ctx context.Context, c Client) ([]HighwayAlert, error) {
	return FetchAs[[]HighwayAlert](ctx, c, "wsdot-highway-alerts", "getAlerts", nil)
}

func GetHighwayAlert(ctx context.Context, c Client, alertID int) (HighwayAlert, error) {
	return FetchAs[HighwayAlert](ctx, c, "wsdot-highway-alerts", "getAlert",
		map[string]string{"AlertID": strconv.Itoa(alertID)})
}

func GetMountainPassConditions(ctx context.Context, c Client) ([]MountainPassCondition, error) {
	return FetchAs[[]MountainPassCondition](ctx, c, "wsdot-mountain-pass-conditions", "getMountainPassConditions", nil)
}

func GetTravelTimes(ctx context.Context, c Client) ([]TravelTimeRoute, error) {
	return FetchAs[[]TravelTimeRoute](ctx, c, "wsdot-travel-times", "getTravelTimes", nil)
}

func GetVesselLocations(ctx context.Context, c Client) ([]VesselLocation, error) {
	return FetchAs[[]VesselLocation](ctx, c, "wsf-vessels", "getVesselLocations", nil)
}

// GetCacheFlushDate returns when a WSF API last changed its data
func GetCacheFlushDate(ctx context.Context, c Client, api string) (time.Time, error) {
	ep, ok := catalog.Default().FlushEndpoint(api)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s has no cacheflushdate", ErrUnknownEndpoint, api)
	}
	resp, err := c.Refresh(ctx, ep.API, ep.Function, nil)
	if err != nil {
		return time.Time{}, err
	}
	raw, ok := resp.Value.AsString()
	if !ok {
		return time.Time{}, fmt.Errorf("cacheflushdate of %s is %s, not string", api, resp.Value.Kind())
	}
	return wsdate.Parse(raw)
}
