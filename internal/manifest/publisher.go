package manifest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/apphost/internal/environment"
	"github.com/conduit-lang/apphost/internal/resource"
	"github.com/conduit-lang/apphost/internal/templates"
)

// DefaultManifestName is the file name used when Options.ManifestName is empty.
const DefaultManifestName = "manifest.json"

// State is the position of a publisher in the commit state machine:
//
//	Configuring -> Validating -> Valid -> Writing -> Committed
//	                          \-> Invalid -> Aborted
//
// Any failure after validation also ends in Aborted.
type State int

const (
	StateConfiguring State = iota
	StateValidating
	StateValid
	StateInvalid
	StateWriting
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateWriting:
		return "writing"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Publisher.
type Options struct {
	OutputPath   string
	ManifestName string
	Mode         resource.ExecutionMode
	Rules        *Rules
	Logger       *zap.Logger
}

// Result describes a completed plan or commit.
type Result struct {
	RunID string
	// ManifestPath is empty for a plan.
	ManifestPath string
	// Files lists generated files; for a plan they are relative to the output path.
	Files    []string
	Document *Document
	Graph    *Graph
}

// Publisher turns a registry into a manifest. A publisher runs once.
type Publisher struct {
	registry *resource.Registry
	opts     Options
	logger   *zap.Logger
	state    State
	runID    string
}

// NewPublisher creates a publisher for reg
func NewPublisher(reg *resource.Registry, opts Options) *Publisher {
	if opts.ManifestName == "" {
		opts.ManifestName = DefaultManifestName
	}
	if opts.OutputPath == "" {
		opts.OutputPath = "."
	}
	if opts.Rules == nil {
		opts.Rules = NewRules()
	}
	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		registry: reg,
		opts:     opts,
		logger:   logger.With(zap.String("run_id", runID)),
		state:    StateConfiguring,
		runID:    runID,
	}
}

// State returns the current state
func (p *Publisher) State() State {
	return p.state
}

// RunID identifies this publisher's run in logs and results
func (p *Publisher) RunID() string {
	return p.runID
}

// Plan runs every phase except writing: hooks, freeze, validation and resolution. The
// registry is left frozen.
func (p *Publisher) Plan(ctx context.Context) (*Result, error) {
	res, _, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Publish commits the manifest. Nothing is written unless validation and resolution of
// every resource succeed.
func (p *Publisher) Publish(ctx context.Context) (*Result, error) {
	if p.opts.Mode == resource.ModeRun {
		p.transition(StateAborted)
		return nil, ErrLocalModeUnsupported
	}

	res, generated, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}

	data, err := res.Document.Serialize()
	if err != nil {
		p.transition(StateAborted)
		return nil, err
	}

	p.transition(StateWriting)
	batch := append(generated, templates.RenderedFile{Path: p.opts.ManifestName, Content: string(data)})
	written, err := templates.WriteFiles(p.opts.OutputPath, batch)
	if err != nil {
		p.transition(StateAborted)
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	path, files := written[len(written)-1], written[:len(written)-1]

	res.ManifestPath = path
	res.Files = files
	p.transition(StateCommitted)
	p.logger.Info("manifest written",
		zap.String("path", path),
		zap.Int("resources", res.Document.Resources.Len()),
		zap.Int("files", len(files)))
	return res, nil
}

func (p *Publisher) prepare(ctx context.Context) (*Result, []templates.RenderedFile, error) {
	if p.state != StateConfiguring {
		return nil, nil, fmt.Errorf("%w (state %s)", ErrPublisherUsed, p.state)
	}

	if err := p.registry.RunBeforePublish(); err != nil {
		p.transition(StateAborted)
		return nil, nil, err
	}
	p.registry.Freeze()

	p.transition(StateValidating)
	if verrs := Validate(p.registry, p.opts.Rules); verrs != nil {
		p.transition(StateInvalid)
		p.logger.Warn("validation failed", zap.Int("violations", verrs.Count()))
		p.transition(StateAborted)
		return nil, nil, verrs
	}
	p.transition(StateValid)

	res, generated, err := p.resolve(ctx)
	if err != nil {
		p.transition(StateAborted)
		return nil, nil, err
	}
	return res, generated, nil
}

// resolve renders every resource in registry order, checking ctx between resources.
func (p *Publisher) resolve(ctx context.Context) (*Result, []templates.RenderedFile, error) {
	if _, err := templates.SafeJoin(p.opts.OutputPath, p.opts.ManifestName); err != nil {
		return nil, nil, fmt.Errorf("manifest name: %w", err)
	}

	resolver := environment.NewResolver(p.opts.Mode, p.logger)
	doc := NewDocument()
	graph := &Graph{}
	var generated []templates.RenderedFile

	resources := p.registry.Resources()
	for _, r := range resources {
		graph.addNode(r.Name, r.Type)
	}

	for _, r := range resources {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("publish cancelled before resource '%s': %w", r.Name, err)
		}

		rd := resolver.NewRenderer(r)
		env, err := resolver.ResolveWith(rd, r)
		if err != nil {
			return nil, nil, err
		}
		entry, err := buildEntry(rd, r, env)
		if err != nil {
			return nil, nil, err
		}
		doc.Resources.Set(r.Name, entry)

		for _, dep := range rd.Dependencies() {
			if dep == r {
				continue
			}
			if _, ok := p.registry.Get(dep.Name); !ok {
				return nil, nil, &resource.ResolutionError{
					ErrCode:  resource.CodeInconsistentReference,
					Resource: r.Name,
					Message:  fmt.Sprintf("resource '%s' references '%s', which is not in the application", r.Name, dep.Name),
				}
			}
			graph.addEdge(r.Name, dep.Name)
		}

		if gen := r.Capabilities.Template; gen != nil {
			files, err := gen.Generate(r)
			if err != nil {
				return nil, nil, fmt.Errorf("generate files for resource '%s': %w", r.Name, err)
			}
			for _, f := range files {
				if err := p.checkOutputPath(f.Path); err != nil {
					return nil, nil, fmt.Errorf("generate files for resource '%s': %w", r.Name, err)
				}
				generated = append(generated, templates.RenderedFile{Path: f.Path, Content: f.Content})
			}
		}

		p.logger.Debug("resolved resource",
			zap.String("resource", r.Name),
			zap.String("type", r.Type))
	}

	paths := make([]string, len(generated))
	for i, f := range generated {
		paths[i] = f.Path
	}

	for _, cycle := range graph.Cycles() {
		p.logger.Debug("reference cycle", zap.Strings("resources", cycle))
	}

	return &Result{
		RunID:    p.runID,
		Files:    paths,
		Document: doc,
		Graph:    graph,
	}, generated, nil
}

func (p *Publisher) transition(to State) {
	p.logger.Debug("publisher state",
		zap.String("from", p.state.String()),
		zap.String("to", to.String()))
	p.state = to
}

// checkOutputPath rejects a generated path that leaves the output directory or would overwrite
// the manifest.
func (p *Publisher) checkOutputPath(rel string) error {
	path, err := templates.SafeJoin(p.opts.OutputPath, rel)
	if err != nil {
		return err
	}
	manifest, _ := templates.SafeJoin(p.opts.OutputPath, p.opts.ManifestName)
	if path == manifest {
		return fmt.Errorf("invalid target path: %s would overwrite the manifest", rel)
	}
	return nil
}
