package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ============================================================================
// Overlay session runner
// ============================================================================
// The runner is the only place that executes surface side effects and the
// only place that reads the real clock. It drives the reducer with frame
// ticks until the session reaches its terminal state.
//
// Cancellation: if ctx is canceled at any phase (termination signal), the
// surface is released before returning so no on-screen artifact is orphaned.
// ============================================================================

// runOverlaySession animates one overlay from appearance to teardown.
// It returns once the session reaches its terminal state or ctx is canceled.
func runOverlaySession(
	ctx context.Context,
	desc OverlayDescriptor,
	style OverlayStyle,
	surface OverlaySurface,
	frameInterval time.Duration,
	logger *slog.Logger,
) error {
	sess := newOverlaySession(desc)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	sess, cmds := reduceOverlay(sess, overlayBegin{Now: time.Now()}, style)
	if err := applySurfaceCommands(surface, cmds, style, logger); err != nil {
		releaseSurface(surface, logger)
		return err
	}

	logger.Debug("overlay session started", "text", desc.Text, "duration_ms", style.DurationMS)

	for !sess.Done {
		select {
		case <-ctx.Done():
			logger.Debug("overlay session canceled", "phase", sess.Phase)
			releaseSurface(surface, logger)
			return ctx.Err()

		case now := <-ticker.C:
			sess, cmds = reduceOverlay(sess, overlayTick{Now: now}, style)
			if err := applySurfaceCommands(surface, cmds, style, logger); err != nil {
				releaseSurface(surface, logger)
				return err
			}
		}
	}

	logger.Debug("overlay session finished")
	return nil
}

// applySurfaceCommands executes reducer-emitted surface commands in order.
func applySurfaceCommands(surface OverlaySurface, cmds []surfaceCommand, style OverlayStyle, logger *slog.Logger) error {
	for _, cmd := range cmds {
		var err error

		switch c := cmd.(type) {
		case cmdShowSurface:
			err = surface.Show(c.Descriptor, style)
		case cmdSetOpacity:
			err = surface.SetOpacity(c.Opacity)
		case cmdReleaseSurface:
			err = surface.Release()
		default:
			logger.Warn("unknown surface command", "command", cmd.String())
			continue
		}

		if err != nil {
			return fmt.Errorf("overlay surface: %s: %w", cmd.String(), err)
		}
	}
	return nil
}

// releaseSurface tears the surface down on abnormal exits, logging rather
// than propagating a second failure.
func releaseSurface(surface OverlaySurface, logger *slog.Logger) {
	if err := surface.Release(); err != nil {
		logger.Warn("failed to release overlay surface", "error", err)
	}
}
