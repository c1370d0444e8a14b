// Package exporter turns a loosely typed device status into metric samples.
//
// One scrape is one Collect call: fetch the raw status from a StatusSource,
// flatten it through the catalog whitelist, map categorical values to stable
// codes and render samples in catalog order. The package keeps no state
// between scrapes; the catalog and mapper are shared read-only.
package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"acexporter/internal/catalog"
)

// DeviceRef identifies one device offered by a status source.
type DeviceRef struct {
	ID    string
	Name  string
	Label string
}

// DeviceSelector picks the device to export.
type DeviceSelector interface {
	Match(device DeviceRef) bool
}

// SelectorFunc adapts a predicate to DeviceSelector.
type SelectorFunc func(device DeviceRef) bool

// Match calls f.
func (f SelectorFunc) Match(device DeviceRef) bool { return f(device) }

// StatusSource fetches the raw status of the first device accepted by selector.
// Implementations perform at most one attempt per call and honour ctx.
type StatusSource interface {
	FetchDeviceStatus(ctx context.Context, selector DeviceSelector) (Document, error)
}

// Options tunes sample naming.
type Options struct {
	Prefix string
}

// Exporter is the per-scrape collection entrypoint.
type Exporter struct {
	catalog  *catalog.Catalog
	names    NameSet
	renderer *Renderer
	source   StatusSource
	selector DeviceSelector
	logger   *slog.Logger
}

// New wires an exporter from its immutable configuration and collaborators.
// Params: cat loaded catalog; mapper value mapper; source status fetcher; selector device predicate;
// opts naming options; logger diagnostics sink (nil discards).
// Returns: exporter or error when a required dependency is missing.
func New(
	cat *catalog.Catalog,
	mapper *Mapper,
	source StatusSource,
	selector DeviceSelector,
	opts Options,
	logger *slog.Logger,
) (*Exporter, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if mapper == nil {
		return nil, fmt.Errorf("mapper is nil")
	}
	if source == nil {
		return nil, fmt.Errorf("status source is nil")
	}
	if selector == nil {
		return nil, fmt.Errorf("device selector is nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Exporter{
		catalog:  cat,
		names:    NewNameSet(cat.Names()...),
		renderer: NewRenderer(opts.Prefix, mapper, logger),
		source:   source,
		selector: selector,
		logger:   logger,
	}, nil
}

// Prefix returns the metric name prefix.
func (e *Exporter) Prefix() string {
	return e.renderer.prefix
}

type fetchResult struct {
	doc Document
	err error
}

// Collect runs one fetch-flatten-render cycle.
// The fetch is abandoned when ctx ends, even if the source ignores cancellation.
// Params: ctx scrape lifecycle with the serving layer's deadline.
// Returns: snapshot, or *FetchError when the status could not be fetched.
func (e *Exporter) Collect(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, &FetchError{Err: err}
	}

	results := make(chan fetchResult, 1)
	go func() {
		doc, err := e.source.FetchDeviceStatus(ctx, e.selector)
		results <- fetchResult{doc: doc, err: err}
	}()

	var res fetchResult
	select {
	case <-ctx.Done():
		return Snapshot{}, &FetchError{Err: ctx.Err()}
	case res = <-results:
	}
	if res.err != nil {
		return Snapshot{}, &FetchError{Err: res.err}
	}

	flat := Flatten(res.doc, e.names)
	e.logger.Debug("device status flattened", slog.Int("fields", len(res.doc)), slog.Int("whitelisted", len(flat)))
	return e.renderer.Render(e.catalog, flat), nil
}
