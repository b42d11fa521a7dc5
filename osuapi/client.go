// Package osuapi downloads beatmap files from osu.ppy.sh.
package osuapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/levigross/grequests"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL           = "https://osu.ppy.sh"
	DefaultUserAgent         = "osusync"
	DefaultRequestsPerMinute = 60

	maxConcurrentRequests = 2
	slowDownBody          = "Slow down, play more."
)

var (
	ErrRateLimited = errors.New("rate limited by osu! servers")
	ErrNotFound    = errors.New("beatmap not found")
)

type Options struct {
	BaseURL           string
	UserAgent         string
	RequestsPerMinute int
	Timeout           time.Duration
	Logger            logrus.FieldLogger
}

type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	log       logrus.FieldLogger
	throttle  *throttle
}

func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		log:       opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = time.Minute
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	c.throttle = newThrottle(rpm, time.Minute, maxConcurrentRequests)
	return c
}

// FetchBeatmap returns the raw .osu text of a single difficulty.
func (c *Client) FetchBeatmap(ctx context.Context, beatmapID int) ([]byte, error) {
	done, err := c.throttle.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	url := fmt.Sprintf("%s/osu/%d", c.baseURL, beatmapID)
	log := c.log.WithFields(logrus.Fields{"beatmap_id": beatmapID, "url": url})
	log.Debug("downloading beatmap")

	resp, err := grequests.Get(url, grequests.FromRequestOptions(&grequests.RequestOptions{
		UserAgent:      c.userAgent,
		RequestTimeout: c.timeout,
		Context:        ctx,
		Headers: map[string]string{
			"Accept":        "text/plain,*/*;q=0.8",
			"Cache-Control": "no-cache",
		},
	}))
	if err != nil {
		return nil, fmt.Errorf("download beatmap %d: %w", beatmapID, err)
	}
	defer resp.Close()

	body := resp.Bytes()
	switch {
	case resp.StatusCode == 429 || strings.Contains(string(body), slowDownBody):
		log.Warn("rate limited")
		return nil, fmt.Errorf("download beatmap %d: %w", beatmapID, ErrRateLimited)
	case resp.StatusCode == 404:
		return nil, fmt.Errorf("download beatmap %d: %w", beatmapID, ErrNotFound)
	case !resp.Ok:
		return nil, fmt.Errorf("download beatmap %d: unexpected status %d", beatmapID, resp.StatusCode)
	case len(body) == 0:
		// osu.ppy.sh answers 200 with an empty body for unknown ids
		return nil, fmt.Errorf("download beatmap %d: %w", beatmapID, ErrNotFound)
	}
	log.WithField("bytes", len(body)).Debug("downloaded beatmap")
	return body, nil
}
