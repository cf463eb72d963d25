// Package linkcheck probes the external links of catalogued documents and
// records which are broken. Links an admin marked as ignored are skipped.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/service"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/resilience"
)

// Catalog is the part of the catalog service the checker needs.
type Catalog interface {
	LinkTargets(ctx context.Context) ([]service.LinkTarget, error)
	RecordLinkCheck(ctx context.Context, docID int64, reachable bool) (bool, error)
}

// Result summarizes one pass.
type Result struct {
	Checked int `json:"checked"`
	Broken  int `json:"broken"`
	Changed int `json:"changed"`
	Errors  int `json:"errors"`
}

type Checker struct {
	catalog Catalog
	client  *http.Client
	cfg     config.LinkCheckConfig
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a Checker. m may be nil.
func New(cat Catalog, cfg config.LinkCheckConfig, m *metrics.Metrics) *Checker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Checker{
		catalog: cat,
		client:  &http.Client{},
		cfg:     cfg,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			JitterFraction: 0.2,
		},
		metrics: m,
		logger:  slog.Default().With("component", "link-checker"),
	}
}

// Run checks every link now and then once per interval until ctx is done.
func (c *Checker) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("link check pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce probes every current link target with bounded concurrency.
func (c *Checker) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	targets, err := c.catalog.LinkTargets(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing link targets: %w", err)
	}

	var checked, broken, changed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for _, target := range targets {
		g.Go(func() error {
			reachable, err := c.probe(gctx, target.Link)
			if err != nil {
				// Cancelled mid-probe: no verdict to record.
				return err
			}
			checked.Add(1)
			if !reachable {
				broken.Add(1)
			}
			ok, err := c.catalog.RecordLinkCheck(gctx, target.DocumentID, reachable)
			if err != nil {
				failed.Add(1)
				c.observe("error")
				c.logger.Warn("recording link check failed", "doc_id", target.DocumentID, "error", err)
				return nil
			}
			if ok {
				changed.Add(1)
				c.logger.Info("link state changed", "doc_id", target.DocumentID, "link", target.Link, "reachable", reachable)
			}
			if reachable {
				c.observe("ok")
			} else {
				c.observe("broken")
			}
			return nil
		})
	}
	err = g.Wait()

	res := Result{
		Checked: int(checked.Load()),
		Broken:  int(broken.Load()),
		Changed: int(changed.Load()),
		Errors:  int(failed.Load()),
	}
	c.logger.Info("link check pass finished",
		"targets", len(targets),
		"checked", res.Checked,
		"broken", res.Broken,
		"changed", res.Changed,
		"errors", res.Errors,
		"duration", time.Since(start),
	)
	return res, err
}

var errServer = errors.New("server error")

// probe reports whether link answers with a non-error status. Client
// errors are final; server and network errors are retried. The returned
// error is non-nil only when ctx ends.
func (c *Checker) probe(ctx context.Context, link string) (bool, error) {
	err := resilience.Retry(ctx, "link-probe", c.retry, func() error {
		var status int
		err := resilience.WithTimeout(ctx, c.cfg.RequestTimeout, "link-probe", func(ctx context.Context) error {
			var err error
			status, err = c.status(ctx, http.MethodHead, link)
			if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
				status, err = c.status(ctx, http.MethodGet, link)
			}
			return err
		})
		switch {
		case err != nil:
			return err
		case status >= 500 || status == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %d", errServer, status)
		case status >= 400:
			return resilience.Permanent(fmt.Errorf("status %d", status))
		}
		return nil
	})
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	c.logger.Debug("link unreachable", "link", link, "error", err)
	return false, nil
}

func (c *Checker) status(ctx context.Context, method, link string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return 0, resilience.Permanent(err)
	}
	req.Header.Set("User-Agent", "library-link-checker/1.0")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

func (c *Checker) observe(result string) {
	if c.metrics != nil {
		c.metrics.LinkChecksTotal.WithLabelValues(result).Inc()
	}
}
