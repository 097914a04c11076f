package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// Handler is an HTTP handler for GraphQL requests against the stats schema.
type Handler struct {
	schema graphql.Schema
}

// NewHandler creates a new GraphQL HTTP handler over a running buffer pool
// and hash index.
func NewHandler(bpm *storage.BufferPoolManager, ht HashTableStats, mc *metrics.MetricsCollector) (*Handler, error) {
	schema, err := Schema(bpm, ht, mc)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema}, nil
}

// Request is a GraphQL HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ServeHTTP handles GraphQL HTTP requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "GraphQL only accepts POST requests", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGraphQLError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	if len(result.Errors) > 0 {
		w.WriteHeader(http.StatusOK) // GraphQL errors still return 200
	}
	json.NewEncoder(w).Encode(result)
}

func writeGraphQLError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]interface{}{{"message": message}},
	})
}

// GraphiQLHandler serves the GraphiQL playground pointed at /graphql.
func GraphiQLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(graphiqlHTML))
	}
}

const graphiqlHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Storage Substrate GraphiQL</title>
    <style>
        body { height: 100vh; margin: 0; width: 100%; overflow: hidden; }
        #graphiql { height: 100vh; }
    </style>
    <script crossorigin src="https://unpkg.com/react@17/umd/react.production.min.js"></script>
    <script crossorigin src="https://unpkg.com/react-dom@17/umd/react-dom.production.min.js"></script>
    <link rel="stylesheet" href="https://unpkg.com/graphiql@1.8.7/graphiql.min.css" />
</head>
<body>
    <div id="graphiql">Loading...</div>
    <script src="https://unpkg.com/graphiql@1.8.7/graphiql.min.js" type="application/javascript"></script>
    <script>
        const fetcher = GraphiQL.createFetcher({ url: '/graphql' });
        ReactDOM.render(
            React.createElement(GraphiQL, {
                fetcher: fetcher,
                defaultQuery: '# bufferPool and hashTable are read-only\nquery {\n  bufferPool { capacity size hitRate evictions }\n  hashTable { capacity numBuckets }\n}\n',
            }),
            document.getElementById('graphiql'),
        );
    </script>
</body>
</html>
`
