package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/victornm/examiner/internal/auth"
	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/score"
)

// The grading service carries JSON-shaped google.protobuf.Struct messages, so clients need no
// generated stubs: the request is the submit body of the HTTP API and the response its result.
const (
	GradingServiceName       = "examiner.v1.GradingService"
	GradingSubmitAttemptFull = "/" + GradingServiceName + "/SubmitAttempt"
)

type gradingServiceServer interface {
	SubmitAttempt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var gradingServiceDesc = grpc.ServiceDesc{
	ServiceName: GradingServiceName,
	HandlerType: (*gradingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitAttempt",
			Handler:    submitAttemptHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "examiner/v1/grading.proto",
}

func registerGradingServiceServer(s grpc.ServiceRegistrar, srv gradingServiceServer) {
	s.RegisterService(&gradingServiceDesc, srv)
}

func submitAttemptHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(gradingServiceServer).SubmitAttempt(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GradingSubmitAttemptFull,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(gradingServiceServer).SubmitAttempt(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

type submitPayload struct {
	ExamID           string   `mapstructure:"examId"`
	SubjectID        string   `mapstructure:"subjectId"`
	AttemptID        string   `mapstructure:"attemptId"`
	Answers          []Answer `mapstructure:"answers"`
	TimeTakenSeconds *int     `mapstructure:"timeTakenSeconds"`
}

// SubmitAttempt grades a finished answer set, the gRPC twin of POST /responses/submit.
func (a *API) SubmitAttempt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := a.identify(ctx)
	if err != nil {
		return nil, err
	}

	var p submitPayload
	if err := decodeStruct(req, &p); err != nil {
		return nil, err
	}
	if p.ExamID == "" {
		return nil, errors.InvalidArgument("examId is required")
	}

	res, err := a.ss.Submit(ctx, score.SubmitRequest{
		AttemptID:        p.AttemptID,
		ExamID:           p.ExamID,
		StudentID:        id.Subject,
		SubjectID:        p.SubjectID,
		Answers:          fromAnswers(p.Answers),
		TimeTakenSeconds: p.TimeTakenSeconds,
	})
	if err != nil {
		return nil, errors.Convert(err)
	}

	return encodeStruct(toResult(res))
}

func (a *API) identify(ctx context.Context) (*auth.Identity, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get("authorization") {
		if tok, ok := strings.CutPrefix(v, "Bearer "); ok && tok != "" {
			return a.auth.Verify(tok)
		}
	}

	return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token"))
}

// decodeStruct decodes a Struct into out. Struct numbers are doubles, fractional values
// are rejected where out expects an integer.
func decodeStruct(in *structpb.Struct, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  integralFloatHook,
	})
	if err != nil {
		return fmt.Errorf("grpc: decoder: %w", err)
	}

	if err := d.Decode(in.AsMap()); err != nil {
		return errors.InvalidArgument("malformed request: %v", err)
	}

	return nil
}

func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	f, ok := data.(float64)
	if !ok || from.Kind() != reflect.Float64 || to.Kind() != reflect.Int {
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}

	return int(f), nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpc: marshal: %w", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("grpc: unmarshal: %w", err)
	}

	return out, nil
}
