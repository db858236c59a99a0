package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/parallel"
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Query types for metrics and logs.
const (
	queryRoute     = "route"
	queryNearest   = "nearest"
	queryReachable = "reachable"
)

// FindPath returns the cheapest route for req, composed into layered legs.
// Errors wrap storage.ErrNodeNotFound, algorithms.ErrNoPath or
// algorithms.ErrTimeout.
func (n *Navigator) FindPath(ctx context.Context, req Request) (*route.Route, error) {
	v := n.view.Load()
	at := n.queryTime(req.QueryTime)

	var r *route.Route
	fields := []logging.Field{logging.Origin(req.OriginID), logging.Destination(req.DestID)}
	err := n.run(ctx, queryRoute, req.Timeout, fields, func(ctx context.Context) (int, error) {
		path, err := n.pathfinder.FindPath(ctx, v.Graph, v.Filter, req.OriginID, req.DestID, at, req.Requester)
		if err != nil {
			return expandedOf(err), err
		}
		r, err = n.compose(v, path, at, req)
		return path.Stats.Expanded, err
	})
	if err != nil {
		return nil, n.wrapTimeout(err, "FindPath", req.OriginID, req.DestID)
	}
	return r, nil
}

// FindPaths runs independent queries in parallel. Results keep request order.
func (n *Navigator) FindPaths(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i].Route, results[i].Err = n.FindPath(ctx, reqs[i])
		}(i)
	}
	wg.Wait()
	return results
}

// FindNearest returns the route to the cheapest node accepted by req.Match.
func (n *Navigator) FindNearest(ctx context.Context, req NearestRequest) (*route.Route, error) {
	if req.Match == nil {
		return nil, errors.New("nearest query needs a matcher")
	}
	v := n.view.Load()
	at := n.queryTime(req.QueryTime)

	var r *route.Route
	err := n.run(ctx, queryNearest, req.Timeout, []logging.Field{logging.Origin(req.OriginID)}, func(ctx context.Context) (int, error) {
		path, err := n.pathfinder.FindNearest(ctx, v.Graph, v.Filter, req.OriginID, req.Match, at, req.Requester)
		if err != nil {
			return expandedOf(err), err
		}
		dest := path.NodeIDs[len(path.NodeIDs)-1]
		r, err = n.compose(v, path, at, Request{OriginID: req.OriginID, DestID: dest, Requester: req.Requester})
		return path.Stats.Expanded, err
	})
	if err != nil {
		return nil, n.wrapTimeout(err, "FindNearest", req.OriginID, "")
	}
	return r, nil
}

// Reachable returns every node within req.Budget of the origin.
func (n *Navigator) Reachable(ctx context.Context, req ReachRequest) (*algorithms.ReachResult, error) {
	v := n.view.Load()
	at := n.queryTime(req.QueryTime)

	var res *algorithms.ReachResult
	err := n.run(ctx, queryReachable, req.Timeout, []logging.Field{logging.Origin(req.OriginID)}, func(ctx context.Context) (int, error) {
		var err error
		res, err = n.pathfinder.Reachable(ctx, v.Graph, v.Filter, req.OriginID,
			algorithms.ReachOptions{Budget: req.Budget, MaxResults: req.MaxResults}, at, req.Requester)
		if err != nil {
			return 0, err
		}
		return res.TotalReachable, nil
	})
	if err != nil {
		return nil, n.wrapTimeout(err, "Reachable", req.OriginID, "")
	}
	return res, nil
}

// IsTraversable evaluates one edge against the current view.
func (n *Navigator) IsTraversable(edgeID string, at time.Time, rc constraints.RequesterContext) (bool, error) {
	return n.view.Load().Filter.IsTraversable(edgeID, n.queryTime(at), rc)
}

func (n *Navigator) compose(v *View, path *algorithms.Path, at time.Time, req Request) (*route.Route, error) {
	admit := func(e *storage.Edge) bool { return v.Filter.Allows(e, at, req.Requester) }
	r, err := n.composer.WithAdmission(admit).Compose(v.Graph, route.StepsFromPath(path.NodeIDs, path.EdgeIDs))
	if err != nil {
		return nil, fmt.Errorf("compose route %s -> %s: %w", req.OriginID, req.DestID, err)
	}
	r.QueryTime = at
	return r, nil
}

func (n *Navigator) queryTime(t time.Time) time.Time {
	if t.IsZero() {
		t = n.now()
	}
	return t.In(n.cfg.Location)
}

// run executes fn on the worker pool under the query deadline. Time spent
// waiting for a worker counts against the deadline. Once a worker has
// started fn its outcome is reported as is; fn observes ctx itself.
func (n *Navigator) run(ctx context.Context, queryType string, timeout time.Duration, fields []logging.Field, fn func(context.Context) (int, error)) error {
	if timeout <= 0 {
		timeout = n.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		expanded int
		err      error
	}
	done := make(chan outcome, 1)
	started := make(chan struct{})
	queued := time.Now()

	task := func() {
		wait := time.Since(queued)
		if m := n.cfg.Metrics; m != nil {
			m.RecordQueueWait(wait)
		}
		if err := ctx.Err(); err != nil {
			done <- outcome{err: timeoutError(err)}
			return
		}
		close(started)
		expanded, err := fn(ctx)
		done <- outcome{expanded: expanded, err: err}
	}

	var res outcome
	if err := n.pool.SubmitContext(ctx, task); err != nil {
		if errors.Is(err, parallel.ErrPoolClosed) {
			return ErrClosed
		}
		res.err = timeoutError(err)
	} else {
		select {
		case res = <-done:
		case <-ctx.Done():
			select {
			case <-started:
				res = <-done
			default:
				res.err = timeoutError(ctx.Err())
			}
		}
	}

	elapsed := time.Since(queued)
	status := queryStatus(res.err)
	if m := n.cfg.Metrics; m != nil {
		m.RecordQuery(queryType, status, elapsed, res.expanded)
	}
	if res.err != nil && status != "no_path" && status != "not_found" {
		n.logger.Warn("query failed", append(fields,
			logging.Operation(queryType),
			logging.String("status", status),
			logging.Latency(elapsed),
			logging.Error(res.err))...)
	} else {
		n.logger.Debug("query finished", append(fields,
			logging.Operation(queryType),
			logging.String("status", status),
			logging.Latency(elapsed),
			logging.Int("expanded", res.expanded))...)
	}
	return res.err
}

func timeoutError(cause error) error {
	return fmt.Errorf("%w: %w", algorithms.ErrTimeout, cause)
}

// wrapTimeout attaches query context to timeouts raised outside the search.
func (n *Navigator) wrapTimeout(err error, op, origin, dest string) error {
	var pe *algorithms.PathError
	if errors.As(err, &pe) || !algorithms.IsTimeout(err) {
		return err
	}
	return &algorithms.PathError{Op: op, Origin: origin, Destination: dest, Err: err}
}

func expandedOf(err error) int {
	var pe *algorithms.PathError
	if errors.As(err, &pe) {
		return pe.Expanded
	}
	return 0
}

func queryStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case algorithms.IsTimeout(err):
		return "timeout"
	case algorithms.IsNoPath(err):
		return "no_path"
	case errors.Is(err, storage.ErrNodeNotFound):
		return "not_found"
	}
	return "error"
}
