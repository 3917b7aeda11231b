package main

import (
	"fmt"
	"net"

	"market-stream/src/config"
	pb "market-stream/src/grpc_control"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/server"

	"google.golang.org/grpc"
)

const defaultGrpcPort = 50051

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(
	api *server.APIServer,
	hub *server.Hub,
	sessions interfaces.ISessionManager,
	config *config.Config,
	appLogger *logger.Logger,
) *grpc.Server {

	// 1. HTTP + websocket
	go func() {
		if err := api.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	port := config.GrpcPort
	if port == 0 {
		port = defaultGrpcPort
	}
	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(config, sessions, hub.Count, appLogger.Named("ControlService"))
	pb.RegisterStreamControlServer(grpcServer, controlService)

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, port))
		if err != nil {
			appLogger.Critical("failed to listen for gRPC: %v", err)
			return
		}

		appLogger.Info("Starting gRPC Control Server on %s:%d", config.GrpcHost, port)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()

	return grpcServer
}
