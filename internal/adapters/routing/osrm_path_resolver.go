package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/platform/obs"
	"drift-spot-service/internal/ports"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultOSRMBaseURL = "https://router.project-osrm.org"
	DefaultProfile     = "driving"
	DefaultTimeout     = 8 * time.Second

	maxResponseBytes = 8 << 20
)

// OSRMPathResolver implements PathResolver using an OSRM route service.
//
// Every call is bounded by the configured timeout. Failures of any kind are
// logged and replaced by a locally smoothed segment, so callers never see an error.
// Identical concurrent lookups share one upstream request.
//
// The resolver is safe for concurrent use.
type OSRMPathResolver struct {
	session     *http.Client
	baseURL     string
	profile     string
	userAgent   string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	cache       ports.SegmentCache

	group singleflight.Group
}

type Option func(*OSRMPathResolver)

func WithProfile(profile string) Option {
	return func(o *OSRMPathResolver) { o.profile = profile }
}

func WithTimeout(d time.Duration) Option {
	return func(o *OSRMPathResolver) { o.timeout = d }
}

func WithMaxAttempts(n int) Option {
	return func(o *OSRMPathResolver) { o.maxAttempts = n }
}

func WithBackoff(d time.Duration) Option {
	return func(o *OSRMPathResolver) { o.backoff = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *OSRMPathResolver) { o.session = c }
}

func WithSegmentCache(c ports.SegmentCache) Option {
	return func(o *OSRMPathResolver) { o.cache = c }
}

func WithUserAgent(ua string) Option {
	return func(o *OSRMPathResolver) { o.userAgent = ua }
}

func NewOSRMPathResolver(baseURL string, opts ...Option) (*OSRMPathResolver, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOSRMBaseURL
	}

	o := &OSRMPathResolver{
		baseURL:     strings.TrimRight(baseURL, "/"),
		profile:     DefaultProfile,
		userAgent:   "drift-spot-service",
		timeout:     DefaultTimeout,
		maxAttempts: 2,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.timeout <= 0 {
		return nil, errors.New("osrm resolver: timeout must be positive")
	}
	if o.maxAttempts < 1 {
		return nil, errors.New("osrm resolver: max attempts must be >= 1")
	}
	if o.profile == "" {
		return nil, errors.New("osrm resolver: profile is empty")
	}
	if o.session == nil {
		o.session = &http.Client{Timeout: o.timeout}
	}

	return o, nil
}

// ResolveSegment returns the road-snapped path from -> to, or the spline
// fallback when snapping fails.
func (o *OSRMPathResolver) ResolveSegment(ctx context.Context, from, to domain.Coordinate) []domain.Coordinate {
	path, err := o.snap(ctx, from, to)
	if err != nil {
		fe := &domain.FallbackError{From: from, To: to, Cause: err}
		log.Printf("req_id=%s op=routing.fallback err=%v", obs.RequestID(ctx), fe)
		return geo.SmoothPath([]domain.Coordinate{from, to})
	}
	return path
}

func (o *OSRMPathResolver) snap(ctx context.Context, from, to domain.Coordinate) (_ []domain.Coordinate, err error) {
	defer obs.Time(ctx, "osrm.snap")(&err)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if o.cache != nil {
		cached, ok, err := o.cache.Get(ctx, from, to)
		if err != nil {
			log.Printf("segment cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	ch := o.group.DoChan(segmentKey(from, to), func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller's context.
		fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer fcancel()

		path, err := o.fetchRoute(fctx, from, to)
		if err != nil {
			return nil, err
		}

		if o.cache != nil {
			if err := o.cache.Put(fctx, from, to, path); err != nil {
				log.Printf("segment cache write failed: %v", err)
			}
		}
		return path, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("snap segment: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return domain.CopyPath(res.Val.([]domain.Coordinate)), nil
	}
}

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRMPathResolver) routeURL(from, to domain.Coordinate) string {
	return fmt.Sprintf(
		"%s/route/v1/%s/%s;%s?overview=full&geometries=geojson",
		o.baseURL, o.profile, lngLatParam(from), lngLatParam(to),
	)
}

func (o *OSRMPathResolver) fetchRoute(ctx context.Context, from, to domain.Coordinate) ([]domain.Coordinate, error) {
	url := o.routeURL(from, to)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodGet, url)
	})
	if err != nil {
		return nil, fmt.Errorf("osrm route request: %w", err)
	}
	defer resp.Body.Close()

	var body osrmRouteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode osrm response: %w", err)
	}

	if body.Code != "Ok" {
		return nil, fmt.Errorf("osrm status %q: %s", body.Code, body.Message)
	}
	if len(body.Routes) == 0 {
		return nil, errors.New("osrm returned no routes")
	}

	coords := body.Routes[0].Geometry.Coordinates
	// A usable segment needs both a start and an end.
	if len(coords) < 2 {
		return nil, fmt.Errorf("osrm geometry has %d coordinates", len(coords))
	}

	path := make([]domain.Coordinate, 0, len(coords))
	for i, pair := range coords {
		c, ok := domain.FromLngLat(pair)
		if !ok {
			return nil, fmt.Errorf("osrm geometry coordinate %d is malformed: %v", i, pair)
		}
		path = append(path, c)
	}

	return path, nil
}

// lngLatParam renders c in OSRM's "lng,lat" order.
func lngLatParam(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

func segmentKey(from, to domain.Coordinate) string {
	return lngLatParam(from) + ";" + lngLatParam(to)
}
