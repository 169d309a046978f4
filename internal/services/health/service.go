// Package health serves the standard gRPC health protocol for orchestrator probes.
package health

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PipelineService is the service name probes query for the frame loop.
const PipelineService = "junction.pipeline"

type Service struct {
	server *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

// NewService registers the health service. Everything starts NOT_SERVING.
func NewService(logger zerolog.Logger) *Service {
	s := &Service{
		server: grpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.SetServing(false)
	return s
}

// SetServing updates both the overall and the pipeline status.
func (s *Service) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(PipelineService, status)
}

// Serve blocks serving on lis until Stop.
func (s *Service) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC health server: %w", err)
	}
	return nil
}

// ListenAndServe listens on the given TCP port and serves.
func (s *Service) ListenAndServe(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	return s.Serve(lis)
}

// Stop marks everything NOT_SERVING and stops the server gracefully.
func (s *Service) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
