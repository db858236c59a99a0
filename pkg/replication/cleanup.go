package replication

import (
	"io"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// resourceCleanup closes registered resources in reverse order unless
// cleared. Start methods defer Cleanup and Clear on success.
type resourceCleanup struct {
	logger    logging.Logger
	resources []namedCloser
}

type namedCloser struct {
	closer io.Closer
	name   string
}

func newResourceCleanup(logger logging.Logger) *resourceCleanup {
	return &resourceCleanup{logger: logger}
}

func (rc *resourceCleanup) Add(closer io.Closer, name string) {
	rc.resources = append(rc.resources, namedCloser{closer: closer, name: name})
}

// Cleanup closes all registered resources, last first. Safe to call twice.
func (rc *resourceCleanup) Cleanup() {
	for i := len(rc.resources) - 1; i >= 0; i-- {
		r := rc.resources[i]
		if err := r.closer.Close(); err != nil {
			rc.logger.Warn("failed to close socket during cleanup", logging.String("socket", r.name), logging.Error(err))
		}
	}
	rc.resources = rc.resources[:0]
}

func (rc *resourceCleanup) Clear() {
	rc.resources = rc.resources[:0]
}
