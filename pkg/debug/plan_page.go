// SPDX-License-Identifier: AGPL-3.0-only

// Package debug serves an admin-only HTML page rendering a partition's most
// recently computed BatchPlan DAG and its scheduler's work-queue depth,
// grounded on storegateway's embedded-template block listing page.
package debug

import (
	_ "embed" // used to embed the plan page template
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/partitiondb/enginecore/pkg/planner"
	"github.com/partitiondb/enginecore/pkg/scheduler"
)

//go:embed plan.gohtml
var planPageHTML string
var planPageTemplate = template.Must(template.New("plan").Parse(planPageHTML))

type vertexRow struct {
	FragmentID int64
	Partition  int32
	StmtIndex  int
	Round      int
	Local      bool
}

type edgeRow struct {
	ConsumerIdx int
	ProducerIdx int
}

type planPageContents struct {
	PartitionID   int32     `json:"partitionID"`
	Now           time.Time `json:"now"`
	ProcedureName string    `json:"procedure"`
	QueueDepth    string    `json:"queueDepth"`
	ExaminedTotal string    `json:"examinedTotal"`
	Vertices      []vertexRow
	Edges         []edgeRow
}

// PartitionSource is the minimal view of a partition runtime the debug
// handler needs: its partition id and its work queue. The profiler is passed
// to Register and the plan to RecordPlan separately.
type PartitionSource interface {
	PartitionID() int32
	WorkQueue() *scheduler.WorkQueue
}

// Handler serves GET /debug/plan/{partition} with the last plan recorded
// for that partition via RecordPlan.
type Handler struct {
	mu       sync.Mutex
	sources  map[int32]PartitionSource
	lastPlan map[int32]*planSnapshot
	profiler map[int32]*scheduler.Profiler
}

type planSnapshot struct {
	procedureName string
	vertices      []*planner.PlanVertex
	rounds        map[*planner.PlanVertex]int
	edges         []planner.Edge
}

// NewHandler constructs an empty debug handler.
func NewHandler() *Handler {
	return &Handler{
		sources:  make(map[int32]PartitionSource),
		lastPlan: make(map[int32]*planSnapshot),
		profiler: make(map[int32]*scheduler.Profiler),
	}
}

// Register attaches a partition's runtime-visible state so the debug page
// can render its queue depth.
func (h *Handler) Register(source PartitionSource, profiler *scheduler.Profiler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[source.PartitionID()] = source
	h.profiler[source.PartitionID()] = profiler
}

// RecordPlan caches the most recently computed plan for a partition, for
// rendering. It stores the view as given and computes nothing: the rounds
// shown on the page are exactly those the caller supplies in plan.Rounds.
func (h *Handler) RecordPlan(partitionID int32, plan *BatchPlanView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastPlan[partitionID] = &planSnapshot{
		procedureName: plan.ProcedureName,
		vertices:      plan.Vertices,
		rounds:        plan.Rounds,
		edges:         plan.Edges,
	}
}

// BatchPlanView is the subset of a BatchPlan the debug page needs, passed in
// by the caller rather than importing pkg/planner's full BatchPlan type
// directly into request handling — keeping the render path free of a
// dependency on how rounds are memoized internally.
type BatchPlanView struct {
	ProcedureName string
	Vertices      []*planner.PlanVertex
	Rounds        map[*planner.PlanVertex]int
	Edges         []planner.Edge
}

// RegisterRoutes wires the debug page into a gorilla/mux router, matching
// this codebase's admin-page wiring convention.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/debug/plan/{partition}", h.servePlanPage).Methods(http.MethodGet)
}

func (h *Handler) servePlanPage(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	partitionID, err := parsePartitionID(vars["partition"])
	if err != nil {
		http.Error(w, "invalid partition id", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	source := h.sources[partitionID]
	snapshot := h.lastPlan[partitionID]
	profiler := h.profiler[partitionID]
	h.mu.Unlock()

	contents := planPageContents{
		PartitionID: partitionID,
		Now:         time.Now(),
		QueueDepth:  "0",
	}
	if source != nil {
		contents.QueueDepth = humanize.Comma(int64(source.WorkQueue().Len()))
	}
	if profiler != nil {
		contents.ExaminedTotal = humanize.Comma(profiler.ExaminedTotal())
	}
	if snapshot != nil {
		contents.ProcedureName = snapshot.procedureName
		for _, v := range snapshot.vertices {
			contents.Vertices = append(contents.Vertices, vertexRow{
				FragmentID: int64(v.Fragment.FragmentID),
				Partition:  v.Partition,
				StmtIndex:  v.StmtIndex,
				Round:      snapshot.rounds[v],
				Local:      v.Local,
			})
		}
		for _, e := range snapshot.edges {
			contents.Edges = append(contents.Edges, edgeRow{ConsumerIdx: e.ConsumerIdx, ProducerIdx: e.ProducerIdx})
		}
	}

	if req.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(contents)
		return
	}
	if err := planPageTemplate.Execute(w, contents); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parsePartitionID(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}
