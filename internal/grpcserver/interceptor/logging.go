package interceptor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
)

// UnaryLoggingInterceptor logs method, duration and status of every unary
// call except the quietMethods, which are only logged when they fail.
func UnaryLoggingInterceptor(quietMethods ...string) grpc.UnaryServerInterceptor {
	quiet := make(map[string]struct{}, len(quietMethods))
	for _, m := range quietMethods {
		quiet[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		resp, err = handler(ctx, req)

		if _, ok := quiet[info.FullMethod]; ok && err == nil {
			return resp, err
		}

		st, _ := status.FromError(err)
		logger.Log.Infow(
			"gRPC request",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", st.Code().String()),
			zap.String("message", st.Message()),
		)

		return resp, err
	}
}
