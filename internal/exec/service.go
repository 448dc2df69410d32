package exec

import (
	"fmt"

	perrors "github.com/pkg/errors"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// buildService delegates to C10. Any failure — serialization, the
// round-trip itself, or no client configured — yields an empty stream
// when Silent, otherwise propagates as an ExecutorError (§4.6, §7).
func (ex *Executor) buildService(qctx *sparqlcontext.Context, n algebra.Service) (iter.Mapping, error) {
	it, err := ex.runService(qctx, n)
	if err != nil {
		if n.Silent {
			qctx.Logger().WithError(err).WithField("endpoint", n.Endpoint).
				Debug("sparql: suppressing SILENT SERVICE failure")
			return iter.FromSlice(nil), nil
		}
		return nil, sparqlerr.ErrExecute.New(err.Error())
	}
	return it, nil
}

func (ex *Executor) runService(qctx *sparqlcontext.Context, n algebra.Service) (iter.Mapping, error) {
	if ex.service == nil {
		return nil, sparqlerr.ErrService.New("no SERVICE client configured")
	}
	queryText, err := serializeSelect(n.Pattern)
	if err != nil {
		return nil, sparqlerr.ErrService.New(fmt.Sprintf("serializing SERVICE pattern for %s: %s", n.Endpoint, err))
	}
	it, err := ex.service.Query(qctx, n.Endpoint, queryText)
	if err != nil {
		return nil, perrors.Wrap(err, "sparql: service round-trip failed")
	}
	return it, nil
}
