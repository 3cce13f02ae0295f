package common

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
	"github.com/LamPham123/CalPal.ai/internal/tools/batch"
)

// ToolContext is the part of the server context the wrapper needs.
type ToolContext interface {
	Metrics() *instrumentation.Metrics
	AuditLogger() *instrumentation.AuditLogger
	DefaultAccount() string
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. Each invocation gets a request ID that the slot finder
// picks up from the context, so audit lines and search logs correlate.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, tc ToolContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := tc.Metrics()
		auditLogger := tc.AuditLogger()

		args := request.GetArguments()
		account := GetAccountFromArgs(args, tc.DefaultAccount())
		requestID := uuid.NewString()
		ctx = availability.WithRequestID(ctx, requestID)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().WithAccount(account).Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithAccount(account).
			WithRequestID(requestID)
		if participants, err := batch.ParseStringOrArray(args["participants"], "participants"); err == nil {
			invocation.WithParticipants(participants...)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			invocation.Complete(false, nil)
			instrumentation.AddSpanEvent(span, "tool.error_result")
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocationWithAccount(ctx, toolName, invocation.Status(), account, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
