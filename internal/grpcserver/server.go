// Package grpcserver implements the MatchingService gRPC server.
//
// It delegates all business logic to the pipeline services and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and conversion between domain types and structpb messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/ingestion"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/scoring"
	"jobmate/matching-service/internal/validation"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "jobmate.matching.v1.MatchingService"

// Ingestor runs discovery.
type Ingestor interface {
	Run(ctx context.Context, userID, keyword string, opts ingestion.Options) (*ingestion.Result, error)
}

// Hydrator hydrates one job through a named provider.
type Hydrator interface {
	HydrateByName(ctx context.Context, userID, jobID, providerName string) (bool, error)
}

// Scorer computes match scores.
type Scorer interface {
	CalculateJobMatch(ctx context.Context, userID, jobID string) (*scoring.MatchResult, error)
	BatchScoring(ctx context.Context, userID string) (*scoring.BatchResult, error)
}

// ProgressReader returns the latest discovery progress.
type ProgressReader interface {
	Get(ctx context.Context, userID string) (*model.DiscoveryProgress, error)
}

// Mover moves jobs on the board.
type Mover interface {
	MoveJob(ctx context.Context, userID, jobID, status string) (*model.Job, error)
}

// Server implements MatchingServer.
type Server struct {
	ingestor Ingestor
	hydrator Hydrator
	scorer   Scorer
	progress ProgressReader
	mover    Mover
	log      *zap.Logger
}

// NewServer constructs a gRPC Server backed by the given services.
func NewServer(ingestor Ingestor, hydrator Hydrator, scorer Scorer, progress ProgressReader, mover Mover, log *zap.Logger) *Server {
	return &Server{
		ingestor: ingestor,
		hydrator: hydrator,
		scorer:   scorer,
		progress: progress,
		mover:    mover,
		log:      log.With(zap.String("component", "grpc")),
	}
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// RunIngestion runs discovery: {keyword, location, limit} → run summary.
func (s *Server) RunIngestion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.ingestor.Run(ctx, userID, str(req, "keyword"), ingestion.Options{
		Location: str(req, "location"),
		Limit:    int(num(req, "limit")),
	})
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(res)
}

// HydrateJob hydrates a job: {jobId, provider} → {hydrated}.
func (s *Server) HydrateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	jobID, err := jobIDFromReq(req)
	if err != nil {
		return nil, err
	}

	ok, err := s.hydrator.HydrateByName(ctx, userID, jobID, str(req, "provider"))
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return structpb.NewStruct(map[string]any{"hydrated": ok})
}

// CalculateJobMatch scores one job: {jobId} → {match}; match is null when
// either side has no embedding.
func (s *Server) CalculateJobMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	jobID, err := jobIDFromReq(req)
	if err != nil {
		return nil, err
	}

	res, err := s.scorer.CalculateJobMatch(ctx, userID, jobID)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(map[string]any{"match": res})
}

// BatchScoring scores every stale job of the caller: {} → {count}.
func (s *Server) BatchScoring(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.scorer.BatchScoring(ctx, userID)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(res)
}

// GetProgress returns the caller's discovery progress.
func (s *Server) GetProgress(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(p)
}

// MoveJob transitions a job: {jobId, status} → job.
func (s *Server) MoveJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	jobID, err := jobIDFromReq(req)
	if err != nil {
		return nil, err
	}

	job, err := s.mover.MoveJob(ctx, userID, jobID, str(req, "status"))
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(job)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	if err := validation.ID("x-user-id", vals[0]); err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return vals[0], nil
}

func jobIDFromReq(req *structpb.Struct) (string, error) {
	id := str(req, "jobId")
	if err := validation.ID("jobId", id); err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return id, nil
}

// toGRPCError maps domain errors to gRPC status errors.
func (s *Server) toGRPCError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	var ve *validation.Error
	if errors.As(err, &ve) {
		return status.Error(codes.InvalidArgument, ve.Msg)
	}
	s.log.Error("rpc failed", zap.Error(err))
	return status.Error(codes.Internal, "internal server error")
}

func str(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func num(req *structpb.Struct, key string) float64 {
	return req.GetFields()[key].GetNumberValue()
}

// toStruct converts a JSON-tagged value into a Struct, so the wire shape
// matches the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
