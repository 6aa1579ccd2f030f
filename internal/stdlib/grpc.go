// The global grpc/proto namespaces, grounded on funxy's
// internal/evaluator/builtins_grpc.go: a dynamic-message gRPC client and
// server built on github.com/jhump/protoreflect's desc/protoparse/dynamic
// packages plus google.golang.org/grpc, so a script can talk to (or serve)
// a gRPC service it only knows about via a .proto file loaded at runtime,
// without any generated Go stubs. Where funxy's builtins return a
// Result<String, T>, this engine follows json.go/yaml.go's convention
// instead and throws a script-catchable error, since that is this
// codebase's established idiom for a fallible host operation.
package stdlib

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// protoRegistry holds every file descriptor loaded via grpc.loadProto,
// process-wide per sharedRegexProxy's same "read-mostly shared resource"
// rationale in regexp.go: a proto file, once parsed, describes the same
// wire shapes for every realm that loads it.
var (
	protoRegistry      = make(map[string]*desc.FileDescriptor)
	protoRegistryMutex sync.RWMutex
)

// grpcConnData backs a KindPlain "GrpcConn" object's Extra, mirroring
// regexData's and promiseData's "opaque Go state parked on Object.Extra"
// pattern.
type grpcConnData struct {
	conn *grpc.ClientConn
}

// grpcServerData backs a KindPlain "GrpcServer" object's Extra. services
// records each registered implementation object so grpcServe/grpcStop and
// introspection have something to point back at.
type grpcServerData struct {
	server   *grpc.Server
	services map[string]*object.Object
}

func installGRPC(r *runtime.Realm, global *object.Object) {
	ns := object.NewObject(r.ObjectProto)
	method(r, ns, "connect", 1, grpcConnect)
	method(r, ns, "close", 1, grpcClose)
	method(r, ns, "loadProto", 1, grpcLoadProto)
	method(r, ns, "invoke", 3, grpcInvoke)
	method(r, ns, "server", 0, grpcServer)
	method(r, ns, "register", 3, grpcRegister)
	method(r, ns, "serve", 2, grpcServe)
	method(r, ns, "serveAsync", 2, grpcServeAsync)
	method(r, ns, "stop", 1, grpcStop)
	global.DefineRaw(object.StringKey("grpc"), object.DataSlot(object.FromObject(ns), true, false, true))

	proto := object.NewObject(r.ObjectProto)
	method(r, proto, "encode", 2, protoEncode)
	method(r, proto, "decode", 2, protoDecode)
	global.DefineRaw(object.StringKey("proto"), object.DataSlot(object.FromObject(proto), true, false, true))
}

// grpc.connect(target) -> GrpcConn
func grpcConnect(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	target, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	conn, derr := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if derr != nil {
		return object.Undefined, r.NewError("Error", "grpc.connect: %s", derr)
	}
	o := object.NewObjectWithKind(r.ObjectProto, object.KindPlain, "GrpcConn")
	o.Extra = &grpcConnData{conn: conn}
	return object.FromObject(o), nil
}

func connOf(v object.Value) (*grpcConnData, bool) {
	if !v.IsObject() {
		return nil, false
	}
	cd, ok := v.AsObject().Extra.(*grpcConnData)
	return cd, ok
}

// grpc.close(conn)
func grpcClose(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	cd, ok := connOf(arg(args, 0))
	if !ok {
		return object.Undefined, r.TypeError("grpc.close expects a GrpcConn")
	}
	if cd.conn != nil {
		if cerr := cd.conn.Close(); cerr != nil {
			return object.Undefined, r.NewError("Error", "grpc.close: %s", cerr)
		}
		cd.conn = nil
	}
	return object.Undefined, nil
}

// grpc.loadProto(path) parses path (and its dependencies) via protoparse
// and registers every resulting file descriptor, so grpc.invoke/register
// and proto.encode/decode can later resolve a "pkg.Service/Method" path or
// a bare message name against it.
func grpcLoadProto(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	path, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	parser := protoparse.Parser{ImportPaths: []string{"."}}
	fds, perr := parser.ParseFiles(path)
	if perr != nil {
		return object.Undefined, r.NewError("Error", "grpc.loadProto: %s", perr)
	}
	protoRegistryMutex.Lock()
	for _, fd := range fds {
		protoRegistry[fd.GetName()] = fd
	}
	protoRegistryMutex.Unlock()
	return object.Undefined, nil
}

// grpc.invoke(conn, "pkg.Service/Method", request) -> response
func grpcInvoke(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	cd, ok := connOf(arg(args, 0))
	if !ok || cd.conn == nil {
		return object.Undefined, r.TypeError("grpc.invoke expects a live GrpcConn")
	}
	methodPath, serr := runtime.ToString(r, arg(args, 1))
	if serr != nil {
		return object.Undefined, serr
	}
	md, merr := findMethodDescriptor(methodPath)
	if merr != nil {
		return object.Undefined, r.NewError("Error", "grpc.invoke: %s", merr)
	}

	reqMsg := dynamic.NewMessage(md.GetInputType())
	if cerr := objectToDynamicMessage(r, arg(args, 2), reqMsg); cerr != nil {
		return object.Undefined, cerr
	}
	respMsg := dynamic.NewMessage(md.GetOutputType())

	wirePath := methodPath
	if len(wirePath) == 0 || wirePath[0] != '/' {
		wirePath = "/" + wirePath
	}
	if ierr := cd.conn.Invoke(context.Background(), wirePath, reqMsg, respMsg); ierr != nil {
		return object.Undefined, r.NewError("Error", "grpc.invoke: RPC failed: %s", ierr)
	}
	return dynamicMessageToObject(r, respMsg), nil
}

// proto.encode(messageName, value) -> a byte string (one code unit per
// byte). This engine has no ArrayBuffer/TypedArray globals wired yet, so
// wire bytes are represented the same way a "binary string" embedding
// would: a JS string whose code units are 0-255.
func protoEncode(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	name, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	md, merr := findMessageDescriptor(name)
	if merr != nil {
		return object.Undefined, r.NewError("Error", "proto.encode: %s", merr)
	}
	msg := dynamic.NewMessage(md)
	if cerr := objectToDynamicMessage(r, arg(args, 1), msg); cerr != nil {
		return object.Undefined, cerr
	}
	data, merr2 := msg.Marshal()
	if merr2 != nil {
		return object.Undefined, r.NewError("Error", "proto.encode: %s", merr2)
	}
	return object.String(bytesToBinaryString(data)), nil
}

// proto.decode(messageName, bytes) -> value
func protoDecode(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	name, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	raw, serr := runtime.ToString(r, arg(args, 1))
	if serr != nil {
		return object.Undefined, serr
	}
	md, merr := findMessageDescriptor(name)
	if merr != nil {
		return object.Undefined, r.NewError("Error", "proto.decode: %s", merr)
	}
	msg := dynamic.NewMessage(md)
	if uerr := msg.Unmarshal(binaryStringToBytes(raw)); uerr != nil {
		return object.Undefined, r.NewError("Error", "proto.decode: %s", uerr)
	}
	return dynamicMessageToObject(r, msg), nil
}

func bytesToBinaryString(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func binaryStringToBytes(s string) []byte {
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, c := range runes {
		out[i] = byte(c)
	}
	return out
}

// grpc.server() -> GrpcServer, an empty server ready for grpc.register.
func grpcServer(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	o := object.NewObjectWithKind(r.ObjectProto, object.KindPlain, "GrpcServer")
	o.Extra = &grpcServerData{server: grpc.NewServer(), services: make(map[string]*object.Object)}
	return object.FromObject(o), nil
}

func serverOf(v object.Value) (*grpcServerData, bool) {
	if !v.IsObject() {
		return nil, false
	}
	sd, ok := v.AsObject().Extra.(*grpcServerData)
	return sd, ok
}

// grpc.register(server, serviceName, impl) wires impl — a plain object
// whose properties are callables named after the service's RPC methods —
// as the handler for serviceName, found among the descriptors grpc.loadProto
// registered. Streaming methods are skipped; this engine's RPC surface is
// unary-only, matching funxy's own "TODO: Streaming support" scope.
func grpcRegister(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	sd, ok := serverOf(arg(args, 0))
	if !ok {
		return object.Undefined, r.TypeError("grpc.register expects a GrpcServer")
	}
	serviceName, serr := runtime.ToString(r, arg(args, 1))
	if serr != nil {
		return object.Undefined, serr
	}
	implVal := arg(args, 2)
	if !implVal.IsObject() {
		return object.Undefined, r.TypeError("grpc.register expects an implementation object")
	}
	impl := implVal.AsObject()

	svcDesc := findServiceDescriptor(serviceName)
	if svcDesc == nil {
		return object.Undefined, r.NewError("Error", "grpc.register: service %q not found in loaded protos", serviceName)
	}

	grpcDesc := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*interface{})(nil),
		Metadata:    svcDesc.GetFile().GetName(),
	}
	handler := &scriptGrpcHandler{r: r, impl: impl}
	for _, m := range svcDesc.GetMethods() {
		if m.IsClientStreaming() || m.IsServerStreaming() {
			continue
		}
		md := m
		grpcDesc.Methods = append(grpcDesc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				h := srv.(*scriptGrpcHandler)
				return h.handleUnary(ctx, md, dec)
			},
		})
	}

	sd.server.RegisterService(grpcDesc, handler)
	sd.services[serviceName] = impl
	return object.Undefined, nil
}

// grpc.serve(server, addr) listens and blocks serving until the server is
// stopped.
func grpcServe(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	sd, ok := serverOf(arg(args, 0))
	if !ok {
		return object.Undefined, r.TypeError("grpc.serve expects a GrpcServer")
	}
	addr, aerr := runtime.ToString(r, arg(args, 1))
	if aerr != nil {
		return object.Undefined, aerr
	}
	lis, lerr := net.Listen("tcp", addr)
	if lerr != nil {
		return object.Undefined, r.NewError("Error", "grpc.serve: %s", lerr)
	}
	if serr := sd.server.Serve(lis); serr != nil {
		return object.Undefined, r.NewError("Error", "grpc.serve: %s", serr)
	}
	return object.Undefined, nil
}

// grpc.serveAsync(server, addr) -> Promise, listening in a background
// goroutine and resolving the returned promise once the listener is bound
// (not once serving stops), so a script can await the bind before issuing
// requests against it. Grounded on this engine's own Promise model
// (promise.go's newPromise/settlePromise) rather than funxy's synchronous
// "launch a goroutine, immediately return Ok" shape, since this engine
// already has a native async-completion primitive funxy's Result type was
// standing in for.
func grpcServeAsync(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	sd, ok := serverOf(arg(args, 0))
	if !ok {
		return object.Undefined, r.TypeError("grpc.serveAsync expects a GrpcServer")
	}
	addr, aerr := runtime.ToString(r, arg(args, 1))
	if aerr != nil {
		return object.Undefined, aerr
	}
	p := newPromise(r)
	pd := p.Extra.(*promiseData)

	lis, lerr := net.Listen("tcp", addr)
	if lerr != nil {
		settlePromise(r, p, pd, true, object.String(lerr.Error()))
		return object.FromObject(p), nil
	}
	go func() {
		_ = sd.server.Serve(lis)
	}()
	settlePromise(r, p, pd, false, object.String(addr))
	return object.FromObject(p), nil
}

// grpc.stop(server) gracefully stops a server started with grpc.serve or
// grpc.serveAsync.
func grpcStop(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	sd, ok := serverOf(arg(args, 0))
	if !ok {
		return object.Undefined, r.TypeError("grpc.stop expects a GrpcServer")
	}
	sd.server.GracefulStop()
	return object.Undefined, nil
}

// scriptGrpcHandler dispatches an incoming unary RPC to a script function
// found on impl by method name, mirroring funxy's FunxyGrpcHandler.
type scriptGrpcHandler struct {
	r    *runtime.Realm
	impl *object.Object
}

func (h *scriptGrpcHandler) handleUnary(ctx context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	inMsg := dynamic.NewMessage(md.GetInputType())
	if err := dec(inMsg); err != nil {
		return nil, err
	}
	inVal := dynamicMessageToObject(h.r, inMsg)

	methodName := md.GetName()
	slot, _ := h.impl.Lookup(object.StringKey(methodName))
	if slot == nil || !slot.Value.IsObject() || !object.IsCallable(slot.Value.AsObject()) {
		return nil, fmt.Errorf("method %s not found in gRPC service implementation", methodName)
	}
	fn := slot.Value.AsObject()

	result, ecmaErr := h.r.Invoker.Call(fn, object.FromObject(h.impl), []object.Value{inVal})
	if ecmaErr != nil {
		return nil, fmt.Errorf("%s", describeThrownGRPC(ecmaErr.Value))
	}

	outMsg := dynamic.NewMessage(md.GetOutputType())
	if cerr := objectToDynamicMessage(h.r, result, outMsg); cerr != nil {
		return nil, fmt.Errorf("%s", cerr.Error())
	}
	return outMsg, nil
}

func describeThrownGRPC(v object.Value) string {
	if v.IsObject() && v.AsObject().ErrorData != nil {
		return v.AsObject().ErrorData.ErrorKind + ": " + v.AsObject().ErrorData.Message
	}
	if v.IsString() {
		return v.AsString()
	}
	return v.TypeName()
}

func findServiceDescriptor(name string) *desc.ServiceDescriptor {
	protoRegistryMutex.RLock()
	defer protoRegistryMutex.RUnlock()
	for _, fd := range protoRegistry {
		if sd := fd.FindService(name); sd != nil {
			return sd
		}
		for _, sd := range fd.GetServices() {
			if sd.GetFullyQualifiedName() == name || sd.GetName() == name {
				return sd
			}
		}
	}
	return nil
}

func findMethodDescriptor(path string) (*desc.MethodDescriptor, error) {
	serviceName, methodName, ok := splitMethodPath(path)
	if !ok {
		return nil, fmt.Errorf("invalid method path %q, expected \"package.Service/Method\"", path)
	}
	protoRegistryMutex.RLock()
	defer protoRegistryMutex.RUnlock()
	for _, fd := range protoRegistry {
		if svc := fd.FindService(serviceName); svc != nil {
			if m := svc.FindMethodByName(methodName); m != nil {
				return m, nil
			}
		}
	}
	return nil, fmt.Errorf("method %q not found (did you grpc.loadProto it?)", path)
}

func findMessageDescriptor(name string) (*desc.MessageDescriptor, error) {
	protoRegistryMutex.RLock()
	defer protoRegistryMutex.RUnlock()
	for _, fd := range protoRegistry {
		if m := fd.FindMessage(name); m != nil {
			return m, nil
		}
	}
	return nil, fmt.Errorf("message type %q not found (did you grpc.loadProto it?)", name)
}

func splitMethodPath(path string) (service, method string, ok bool) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:], true
		}
	}
	return "", "", false
}

// objectToDynamicMessage populates msg's fields from a script object's own
// enumerable properties, matching funxy's Record/Map-to-message conversion
// generalized to this engine's one plain-object shape.
func objectToDynamicMessage(r *runtime.Realm, v object.Value, msg *dynamic.Message) *runtime.EcmaError {
	if !v.IsObject() {
		return r.TypeError("expected an object for message %s", msg.GetMessageDescriptor().GetFullyQualifiedName())
	}
	o := v.AsObject()
	for _, key := range o.OwnKeys(false, false) {
		fd := msg.GetMessageDescriptor().FindFieldByName(key.String())
		if fd == nil {
			continue
		}
		fieldVal := runtime.GetProperty(r, v, key)
		goVal, err := convertToProtoValue(r, fieldVal, fd)
		if err != nil {
			return err
		}
		if goVal != nil {
			if serr := msg.SetField(fd, goVal); serr != nil {
				return r.TypeError("field %s: %s", key.String(), serr)
			}
		}
	}
	return nil
}

func convertToProtoValue(r *runtime.Realm, val object.Value, fd *desc.FieldDescriptor) (interface{}, *runtime.EcmaError) {
	if val.IsUndefined() || val.IsNull() {
		return nil, nil
	}
	if fd.IsRepeated() {
		if !val.IsObject() || val.AsObject().Kind != object.KindArray {
			return nil, r.TypeError("field %s: expected an array", fd.GetName())
		}
		arr := val.AsObject()
		out := make([]interface{}, 0, arr.ArrayLength)
		for i := uint32(0); i < arr.ArrayLength; i++ {
			elem := runtime.GetProperty(r, val, object.IndexKey(i))
			ev, err := convertToProtoSingleValue(r, elem, fd)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	}
	return convertToProtoSingleValue(r, val, fd)
}

func convertToProtoSingleValue(r *runtime.Realm, val object.Value, fd *desc.FieldDescriptor) (interface{}, *runtime.EcmaError) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		n, err := runtime.ToNumber(r, val)
		return int32(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		n, err := runtime.ToNumber(r, val)
		return int64(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		n, err := runtime.ToNumber(r, val)
		return uint32(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		n, err := runtime.ToNumber(r, val)
		return uint64(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		n, err := runtime.ToNumber(r, val)
		return float32(n), err
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		n, err := runtime.ToNumber(r, val)
		return n, err
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return runtime.ToBoolean(val), nil
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		s, err := runtime.ToString(r, val)
		return s, err
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		s, err := runtime.ToString(r, val)
		if err != nil {
			return nil, err
		}
		return binaryStringToBytes(s), nil
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		nested := dynamic.NewMessage(fd.GetMessageType())
		if err := objectToDynamicMessage(r, val, nested); err != nil {
			return nil, err
		}
		return nested, nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		if val.IsString() {
			s, _ := runtime.ToString(r, val)
			if ev := fd.GetEnumType().FindValueByName(s); ev != nil {
				return ev.GetNumber(), nil
			}
			return nil, r.TypeError("unknown enum value %q for field %s", s, fd.GetName())
		}
		n, err := runtime.ToNumber(r, val)
		return int32(n), err
	}
	return nil, r.TypeError("unsupported proto field type for %s", fd.GetName())
}

// dynamicMessageToObject is the inverse of objectToDynamicMessage, walking
// every declared field (not just the ones that were actually set, matching
// proto3's "absent means the type's zero value" semantics).
func dynamicMessageToObject(r *runtime.Realm, msg *dynamic.Message) object.Value {
	o := object.NewObject(r.ObjectProto)
	for _, fd := range msg.GetMessageDescriptor().GetFields() {
		val := msg.GetField(fd)
		o.DefineRaw(object.StringKey(fd.GetName()), object.DataSlot(convertFromProtoValue(r, val, fd), true, true, true))
	}
	return object.FromObject(o)
}

func convertFromProtoValue(r *runtime.Realm, val interface{}, fd *desc.FieldDescriptor) object.Value {
	if fd.IsRepeated() {
		slice, ok := val.([]interface{})
		if !ok {
			return object.FromObject(object.NewArray(r.ArrayProto))
		}
		arr := object.NewArray(r.ArrayProto)
		for i, item := range slice {
			arr.SetIndex(uint32(i), convertFromProtoSingleValue(r, item, fd))
		}
		return object.FromObject(arr)
	}
	return convertFromProtoSingleValue(r, val, fd)
}

func convertFromProtoSingleValue(r *runtime.Realm, val interface{}, fd *desc.FieldDescriptor) object.Value {
	switch v := val.(type) {
	case int32:
		if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_ENUM {
			if ev := fd.GetEnumType().FindValueByNumber(v); ev != nil {
				return object.String(ev.GetName())
			}
		}
		return object.Float64(float64(v))
	case int64:
		return object.Float64(float64(v))
	case uint32:
		return object.Float64(float64(v))
	case uint64:
		return object.Float64(float64(v))
	case float32:
		return object.Float64(float64(v))
	case float64:
		return object.Float64(v)
	case bool:
		return object.Bool(v)
	case string:
		return object.String(v)
	case []byte:
		return object.String(bytesToBinaryString(v))
	case *dynamic.Message:
		return dynamicMessageToObject(r, v)
	case nil:
		return object.Null
	}
	return object.Undefined
}
