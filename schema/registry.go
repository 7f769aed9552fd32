package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// discoverySchemaSource is the bundled schema for the broker's reserved
// Service Discovery response, always present regardless of what a
// deployment loads from its schemas directory.
const discoverySchemaSource = `syntax = "proto3";

message TopicBinding {
  string topic = 1;
  string type_name = 2;
  string schema_source = 3;
}

message ServiceDiscoveryResponse {
  repeated TopicBinding bindings = 1;
  uint64 active_connections = 2;
  uint64 total_messages_routed = 3;
}
`

// DiscoveryResponseType is the reserved message name clients decode
// $SYS/discovery/response payloads as.
const DiscoveryResponseType = "ServiceDiscoveryResponse"

// TopicBindingType is the reserved message name for one entry of a
// ServiceDiscoveryResponse's bindings field.
const TopicBindingType = "TopicBinding"

// Registry holds every registered message definition and the topic ->
// type-name bindings that tell the broker how to interpret a PUBLISH
// payload. A single Registry is shared read-mostly across the reactor's
// single goroutine and whatever loads schemas at startup or via the
// admin surface, so it guards its maps with a mutex even though the
// broker's hot path never blocks on it for long.
type Registry struct {
	mu       sync.RWMutex
	messages map[string]*MessageDef
	bindings map[string]string // topic -> message type name
}

// NewRegistry returns a Registry pre-loaded with the reserved Service
// Discovery schema.
func NewRegistry() *Registry {
	r := &Registry{
		messages: make(map[string]*MessageDef),
		bindings: make(map[string]string),
	}
	defs, err := newParser(discoverySchemaSource).parseFile()
	if err != nil {
		panic(fmt.Sprintf("schema: bundled discovery schema failed to parse: %v", err))
	}
	for _, def := range defs {
		r.messages[def.Name] = def
	}
	return r
}

// RegisterMessage adds or replaces a message definition under its own
// name. Re-registering an existing name overwrites it; LoadDirectory and
// RegisterSchemaAndBind replace same-named definitions the same way.
func (r *Registry) RegisterMessage(def *MessageDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[def.Name] = def
}

// LookupMessage returns the named message definition, if registered.
func (r *Registry) LookupMessage(name string) (*MessageDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.messages[name]
	return def, ok
}

// BindTopic associates an exact topic string with a registered message
// type. The type must already be registered: binding to a name that
// does not resolve to a schema would leave PUBLISH payloads on that
// topic impossible to decode.
func (r *Registry) BindTopic(topicName, typeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[typeName]; !ok {
		return ErrTypeNotRegistered
	}
	r.bindings[topicName] = typeName
	return nil
}

// LookupTypeForTopic returns the message type name bound to topicName,
// if any.
func (r *Registry) LookupTypeForTopic(topicName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bindings[topicName]
	return name, ok
}

// TopicBinding is one entry of ListTopicBindings' snapshot.
type TopicBinding struct {
	Topic    string
	TypeName string
}

// ListTopicBindings returns a snapshot of every topic -> type binding,
// sorted by topic, for the admin surface and for building Service
// Discovery responses.
func (r *Registry) ListTopicBindings() []TopicBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TopicBinding, 0, len(r.bindings))
	for topic, typeName := range r.bindings {
		out = append(out, TopicBinding{Topic: topic, TypeName: typeName})
	}
	sortBindings(out)
	return out
}

func sortBindings(bs []TopicBinding) {
	for i := 1; i < len(bs); i++ {
		for j := i; j > 0 && bs[j-1].Topic > bs[j].Topic; j-- {
			bs[j-1], bs[j] = bs[j], bs[j-1]
		}
	}
}

// SchemaCount reports how many message types are registered, including
// the bundled discovery types.
func (r *Registry) SchemaCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}

// RegisterSchemaAndBind parses source, registers every message it
// defines, and binds topicName to typeName, as one atomic operation
// from the caller's point of view: if typeName isn't among the parsed
// messages, nothing is registered or bound.
func (r *Registry) RegisterSchemaAndBind(source, topicName, typeName string) error {
	defs, err := newParser(source).parseFile()
	if err != nil {
		return err
	}
	found := false
	for _, def := range defs {
		if def.Name == typeName {
			found = true
		}
	}
	if !found {
		return ErrMessageNotRegistered
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		r.messages[def.Name] = def
	}
	r.bindings[topicName] = typeName
	return nil
}

// LoadDirectory parses every *.proto file in dir and registers the
// message types it defines. A file that fails to parse is skipped with
// its error collected rather than aborting the whole directory, so one
// malformed schema doesn't block every other one from loading.
func (r *Registry) LoadDirectory(dir string) (loaded int, errs map[string]error) {
	errs = make(map[string]error)
	entries, err := os.ReadDir(dir)
	if err != nil {
		errs[dir] = err
		return 0, errs
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".proto") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs[path] = err
			continue
		}
		defs, err := newParser(string(data)).parseFile()
		if err != nil {
			errs[path] = err
			continue
		}
		for _, def := range defs {
			r.RegisterMessage(def)
		}
		loaded += len(defs)
	}
	return loaded, errs
}

// BuildDiscoveryValue assembles a ServiceDiscoveryResponse value tree
// ready for EncodeMessage, listing every current topic binding along
// with its schema's verbatim source text.
func (r *Registry) BuildDiscoveryValue(activeConnections, totalMessagesRouted uint64) map[uint32]*Value {
	bindings := r.ListTopicBindings()
	repeated := make([]*Value, 0, len(bindings))
	for _, b := range bindings {
		def, ok := r.LookupMessage(b.TypeName)
		source := ""
		if ok {
			source = def.Source
		}
		repeated = append(repeated, messageValue(map[uint32]*Value{
			1: bytesValue([]byte(b.Topic)),
			2: bytesValue([]byte(b.TypeName)),
			3: bytesValue([]byte(source)),
		}))
	}

	bindingsField := &Value{Kind: WireLengthDelimited, Repeated: repeated}

	return map[uint32]*Value{
		1: bindingsField,
		2: varintValue(activeConnections),
		3: varintValue(totalMessagesRouted),
	}
}
