package workspace

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/compat"
	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/node"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/testutil"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

// tunable is a pass-through string component with settings.
type tunable struct {
	*testutil.FuncComponent
	prefix string
}

func newTunable() component.Component {
	t := &tunable{}
	t.FuncComponent = testutil.NewFuncComponent(func(_ context.Context, in []any) (component.Outputs, error) {
		s, _ := in[0].(string)
		return component.Outputs{0: t.prefix + s}, nil
	}, testutil.In("in", typebridge.String), testutil.Out("out", typebridge.String))
	return t
}

func (t *tunable) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "prefix", Type: cty.String, Default: cty.StringVal("")},
		{Name: "rounds", Type: cty.Number, Default: cty.NumberIntVal(1)},
		{Name: "version", Type: cty.String, Default: cty.StringVal("v1"), ReadOnly: true},
		{Name: "scratch", Type: cty.String, Default: cty.StringVal("tmp"), DontSave: true},
	}
}

func (t *tunable) ApplySetting(name string, v cty.Value) error {
	if name == "prefix" {
		t.prefix = v.AsString()
	}
	return nil
}

func testRegistry() *registry.Registry {
	r := registry.New()
	modules := []registry.Module{
		&testutil.SimpleModule{Name: "text", New: func() component.Component { return testutil.Source(typebridge.String, "hello") }},
		&testutil.SimpleModule{Name: "int", New: func() component.Component { return testutil.Source(typebridge.Int32, int32(42)) }},
		&testutil.SimpleModule{Name: "relay", New: func() component.Component { return testutil.Relay(typebridge.String, 0) }},
		&testutil.SimpleModule{Name: "sink", New: func() component.Component { return testutil.Sink(typebridge.String) }},
		&testutil.SimpleModule{Name: "bigsink", New: func() component.Component { return testutil.Sink(typebridge.BigInt) }},
		&testutil.SimpleModule{Name: "intsink", New: func() component.Component { return testutil.Sink(typebridge.Int32) }},
		&testutil.SimpleModule{Name: "tunable", New: newTunable},
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

func newWorkspace(t *testing.T, opts Options) *Workspace {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	opts.Logger = logger
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = 2 * time.Millisecond
	}
	if opts.StopTimeout == 0 {
		opts.StopTimeout = 2 * time.Second
	}
	w := New(testRegistry(), opts)
	t.Cleanup(func() {
		if w.Running() {
			_ = w.Stop(context.Background())
		}
	})
	return w
}

func add(t *testing.T, w *Workspace, typeName, name string) *node.Node {
	t.Helper()
	n, err := w.AddNode(context.Background(), typeName, name, node.Geometry{})
	require.NoError(t, err)
	return n
}

func connect(t *testing.T, w *Workspace, from, to string) *node.Edge {
	t.Helper()
	fp, err := w.Port(splitRef(from))
	require.NoError(t, err)
	tp, err := w.Port(splitRef(to))
	require.NoError(t, err)
	e, err := w.Connect(fp, tp)
	require.NoError(t, err)
	return e
}

func splitRef(ref string) (string, string) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '.' {
			return ref[:i], ref[i+1:]
		}
	}
	return ref, ""
}

func funcOf(n *node.Node) *testutil.FuncComponent {
	switch c := n.Component.(type) {
	case *testutil.FuncComponent:
		return c
	case *tunable:
		return c.FuncComponent
	}
	return nil
}

func runToQuiescence(t *testing.T, w *Workspace) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Wait(ctx))
	require.NoError(t, w.Stop(context.Background()))
}

func TestAddNode(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, Options{})
	a := add(t, w, "relay", "a")
	auto := add(t, w, "relay", "")
	assert.Equal(t, "relay_1", auto.Name)

	_, err := w.AddNode(context.Background(), "relay", "a", node.Geometry{})
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = w.AddNode(context.Background(), "missing", "m", node.Geometry{})
	require.ErrorIs(t, err, registry.ErrUnknownComponent)

	got, ok := w.Node(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)
	byName, ok := w.NodeByName("a")
	require.True(t, ok)
	assert.Same(t, a, byName)
	assert.Len(t, w.Nodes(), 2)

	_, err = w.Port("a", "nope")
	require.ErrorIs(t, err, ErrPortNotFound)
	_, err = w.Port("ghost", "in")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestConnect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		fromType string
		toType   string
		want     compat.Level
	}{
		{name: "green", fromType: "text", toType: "sink", want: compat.Green},
		{name: "yellow int32 to bigint", fromType: "int", toType: "bigsink", want: compat.Yellow},
		{name: "yellow int32 to string", fromType: "int", toType: "sink", want: compat.Yellow},
		{name: "red string to int32", fromType: "text", toType: "intsink", want: compat.Red},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := newWorkspace(t, Options{})
			a := add(t, w, tc.fromType, "a")
			b := add(t, w, tc.toType, "b")

			assert.Equal(t, tc.want, compat.Check(w, a.Port("out"), b.Port("in")))
			e, err := w.Connect(a.Port("out"), b.Port("in"))
			if !tc.want.Connectable() {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tc.want, verr.Level)
				assert.Empty(t, w.Edges())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []*node.Edge{e}, w.Edges())
			assert.Equal(t, []*node.Edge{e}, a.Port("out").Edges())
			assert.Equal(t, []*node.Edge{e}, b.Port("in").Edges())
		})
	}

	t.Run("structural refusals", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		a := add(t, w, "relay", "a")
		b := add(t, w, "relay", "b")
		connect(t, w, "a.out", "b.in")

		var verr *ValidationError
		_, err := w.Connect(a.Port("out"), b.Port("in"))
		require.ErrorAs(t, err, &verr, "duplicate edge")
		_, err = w.Connect(a.Port("out"), a.Port("in"))
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, compat.NA, verr.Level)
		_, err = w.Connect(b.Port("in"), a.Port("out"))
		require.ErrorAs(t, err, &verr, "reversed direction")

		other := newWorkspace(t, Options{})
		foreign := add(t, other, "sink", "c")
		_, err = w.Connect(a.Port("out"), foreign.Port("in"))
		require.ErrorIs(t, err, ErrPortNotFound)
	})
}

func TestRemoveNode_Cascades(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, Options{})
	add(t, w, "text", "src")
	mid := add(t, w, "relay", "mid")
	sink := add(t, w, "sink", "sink")
	connect(t, w, "src.out", "mid.in")
	e := connect(t, w, "mid.out", "sink.in")
	require.NoError(t, w.SetInput(mid.Port("in"), "preset"))
	require.NoError(t, w.Disconnect(e.ID))
	connect(t, w, "mid.out", "sink.in")

	require.NoError(t, w.RemoveNode(context.Background(), mid.ID))

	assert.Empty(t, w.Edges())
	assert.False(t, sink.Port("in").Connected())
	src, _ := w.NodeByName("src")
	assert.False(t, src.Port("out").Connected())
	_, ok := w.Node(mid.ID)
	assert.False(t, ok)
	assert.Empty(t, w.presets)

	require.ErrorIs(t, w.RemoveNode(context.Background(), mid.ID), ErrNodeNotFound)
	require.ErrorIs(t, w.Disconnect(e.ID), ErrEdgeNotFound)
}

func TestChangeSetting(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, Options{})
	n := add(t, w, "tunable", "t")

	require.NoError(t, w.ChangeSetting(n.ID, "rounds", cty.StringVal("7")))
	v, ok := n.Setting("rounds")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(7)), "string converted to the declared number type")

	require.Error(t, w.ChangeSetting(n.ID, "rounds", cty.StringVal("seven")))
	require.Error(t, w.ChangeSetting(n.ID, "missing", cty.StringVal("x")))
	require.ErrorIs(t, w.ChangeSetting(uuid.New(), "prefix", cty.StringVal("x")), ErrNodeNotFound)
}

func TestComputeHash(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T, order []string, names map[string]string) *Workspace {
		t.Helper()
		w := newWorkspace(t, Options{})
		for _, typ := range order {
			_, err := w.AddNode(context.Background(), typ, names[typ], node.Geometry{X: float64(len(names[typ]))})
			require.NoError(t, err)
		}
		connect(t, w, names["text"]+".out", names["tunable"]+".in")
		connect(t, w, names["tunable"]+".out", names["sink"]+".in")
		return w
	}

	base := build(t, []string{"text", "tunable", "sink"}, map[string]string{"text": "a", "tunable": "b", "sink": "c"})
	reordered := build(t, []string{"sink", "tunable", "text"}, map[string]string{"text": "source", "tunable": "filter", "sink": "out"})
	assert.Equal(t, base.ComputeHash(), reordered.ComputeHash(), "order, names and geometry do not matter")

	h := base.ComputeHash()
	b, _ := base.NodeByName("b")
	require.NoError(t, base.ChangeSetting(b.ID, "scratch", cty.StringVal("other")))
	assert.Equal(t, h, base.ComputeHash(), "DontSave settings are ignored")

	require.NoError(t, base.ChangeSetting(b.ID, "prefix", cty.StringVal(">")))
	changed := base.ComputeHash()
	assert.NotEqual(t, h, changed)

	e := base.Edges()[0]
	require.NoError(t, base.Disconnect(e.ID))
	assert.NotEqual(t, changed, base.ComputeHash())

	assert.Equal(t, "3.5", settingText(cty.NumberFloatVal(3.5)))
	assert.Equal(t, "true", settingText(cty.True))
	assert.Equal(t, `["a","b"]`, settingText(cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})))
}

func TestCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("add and remove with edges round-trip", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		add(t, w, "text", "src")
		add(t, w, "sink", "sink")

		addMid := &AddNodeCommand{Type: "relay", Name: "mid"}
		require.NoError(t, addMid.Apply(ctx, w))
		in := connect(t, w, "src.out", "mid.in")
		out := connect(t, w, "mid.out", "sink.in")
		before := w.ComputeHash()

		remove := addMid.Inverse()
		require.NoError(t, remove.Apply(ctx, w))
		assert.Empty(t, w.Edges())

		restore := remove.Inverse()
		require.NoError(t, restore.Apply(ctx, w))
		assert.ElementsMatch(t, []*node.Edge{in, out}, w.Edges(), "the same edges come back")
		got, ok := w.Node(addMid.Node().ID)
		require.True(t, ok)
		assert.Same(t, addMid.Node(), got)
		assert.Equal(t, before, w.ComputeHash())
	})

	t.Run("connect and disconnect", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		a := add(t, w, "text", "a")
		b := add(t, w, "sink", "b")

		c := &ConnectCommand{From: a.Port("out"), To: b.Port("in")}
		assert.Nil(t, c.Inverse(), "nothing to invert before Apply")
		require.NoError(t, c.Apply(ctx, w))
		id := c.Edge().ID

		undo := c.Inverse()
		require.NoError(t, undo.Apply(ctx, w))
		assert.Empty(t, w.Edges())

		require.NoError(t, undo.Inverse().Apply(ctx, w))
		require.Len(t, w.Edges(), 1)
		assert.Equal(t, id, w.Edges()[0].ID)
	})

	t.Run("change setting", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		n := add(t, w, "tunable", "t")

		c := &ChangeSettingCommand{NodeID: n.ID, Key: "prefix", Value: cty.StringVal(">>")}
		require.NoError(t, c.Apply(ctx, w))
		v, _ := n.Setting("prefix")
		assert.Equal(t, ">>", v.AsString())

		require.NoError(t, c.Inverse().Apply(ctx, w))
		v, _ = n.Setting("prefix")
		assert.Equal(t, "", v.AsString())
	})

	t.Run("multi command rolls back on failure", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		add(t, w, "text", "src")

		m := &MultiCommand{Commands: []Command{
			&AddNodeCommand{Type: "relay", Name: "mid"},
			&AddNodeCommand{Type: "sink", Name: "sink"},
			&AddNodeCommand{Type: "missing", Name: "boom"},
		}}
		err := m.Apply(ctx, w)
		require.ErrorIs(t, err, registry.ErrUnknownComponent)
		assert.Nil(t, m.Inverse())

		var names []string
		for _, n := range w.Nodes() {
			names = append(names, n.Name)
		}
		assert.Equal(t, []string{"src"}, names)
	})

	t.Run("multi command inverse", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		a := add(t, w, "text", "a")
		b := add(t, w, "sink", "b")

		m := &MultiCommand{Commands: []Command{
			&ConnectCommand{From: a.Port("out"), To: b.Port("in")},
			&RemoveNodeCommand{ID: a.ID},
		}}
		require.NoError(t, m.Apply(ctx, w))
		assert.Len(t, w.Nodes(), 1)

		require.NoError(t, m.Inverse().Apply(ctx, w))
		assert.Len(t, w.Nodes(), 2)
		assert.Empty(t, w.Edges(), "the connect was undone after the node came back")
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("values flow to quiescence", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		src := add(t, w, "text", "src")
		tun := add(t, w, "tunable", "tun")
		sink := add(t, w, "sink", "sink")
		connect(t, w, "src.out", "tun.in")
		connect(t, w, "tun.out", "sink.in")
		require.NoError(t, w.ChangeSetting(tun.ID, "prefix", cty.StringVal("> ")))

		runToQuiescence(t, w)

		assert.Equal(t, uint64(1), src.Executions())
		assert.Equal(t, []any{"> hello"}, funcOf(sink).Received())
		last, ok := tun.Port("out").Last()
		require.True(t, ok)
		assert.Equal(t, "> hello", last)
		assert.InDelta(t, 1.0, w.Progress(), 1e-9)
		for _, n := range w.Nodes() {
			assert.Equal(t, node.Stopped, n.State(), n.Name)
		}
	})

	t.Run("presets and coercion on delivery", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		sink := add(t, w, "bigsink", "big")
		require.NoError(t, w.SetInput(sink.Port("in"), int64(1)<<40))

		runToQuiescence(t, w)

		require.Len(t, funcOf(sink).Received(), 1)
		got, ok := funcOf(sink).Received()[0].(*big.Int)
		require.True(t, ok)
		assert.Equal(t, "1099511627776", got.String())
	})

	t.Run("restart resets run state", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		add(t, w, "int", "src")
		sink := add(t, w, "sink", "sink")
		connect(t, w, "src.out", "sink.in")

		runToQuiescence(t, w)
		runToQuiescence(t, w)

		assert.Equal(t, uint64(1), sink.Executions(), "counters restart with every run")
		if diff := cmp.Diff([]any{"42", "42"}, funcOf(sink).Received()); diff != "" {
			t.Errorf("received mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("lifecycle errors", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		require.ErrorIs(t, w.Stop(context.Background()), ErrNotRunning)
		require.NoError(t, w.Start(context.Background()))
		require.ErrorIs(t, w.Start(context.Background()), ErrRunning)
		require.NoError(t, w.Stop(context.Background()))
		assert.True(t, w.Quiescent())
	})

	t.Run("graph edits while running", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t, Options{})
		add(t, w, "text", "src")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, w.Start(ctx))
		require.NoError(t, w.Wait(ctx))

		sink := add(t, w, "sink", "sink")
		in := sink.Port("in")
		require.NoError(t, w.SetInput(in, "late"))
		require.NoError(t, w.Wait(ctx))
		assert.Equal(t, []any{"late"}, funcOf(sink).Received())

		require.NoError(t, w.RemoveNode(ctx, sink.ID))
		assert.True(t, funcOf(sink).StopCalled())
		require.NoError(t, w.Stop(ctx))
	})

	t.Run("stop timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		defer close(release)

		r := registry.New()
		(&testutil.SimpleModule{Name: "stuck", New: func() component.Component {
			return testutil.NewFuncComponent(func(context.Context, []any) (component.Outputs, error) {
				<-release
				return nil, nil
			}, testutil.Out("out", typebridge.String))
		}}).Register(r)
		logger, _ := testutil.NewLogger(t)
		w := New(r, Options{Logger: logger, StopTimeout: 50 * time.Millisecond, WaitTimeout: time.Millisecond})
		n, err := w.AddNode(context.Background(), "stuck", "s", node.Geometry{})
		require.NoError(t, err)

		require.NoError(t, w.Start(context.Background()))
		require.Eventually(t, func() bool { return n.State() == node.Running }, time.Second, time.Millisecond)
		err = w.Stop(context.Background())
		assert.True(t, errors.Is(err, ErrStopTimeout))
	})

	t.Run("start waits for timed-out workers", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		unblock := sync.OnceFunc(func() { close(release) })
		defer unblock()

		stuck := testutil.NewFuncComponent(func(context.Context, []any) (component.Outputs, error) {
			<-release
			return nil, nil
		}, testutil.Out("out", typebridge.String))
		r := registry.New()
		(&testutil.SimpleModule{Name: "stuck", New: func() component.Component { return stuck }}).Register(r)
		logger, _ := testutil.NewLogger(t)
		w := New(r, Options{Logger: logger, StopTimeout: 50 * time.Millisecond, WaitTimeout: time.Millisecond})
		n, err := w.AddNode(context.Background(), "stuck", "s", node.Geometry{})
		require.NoError(t, err)

		require.NoError(t, w.Start(context.Background()))
		require.Eventually(t, func() bool { return n.State() == node.Running }, time.Second, time.Millisecond)
		require.ErrorIs(t, w.Stop(context.Background()), ErrStopTimeout)

		err = w.Start(context.Background())
		require.ErrorIs(t, err, ErrStopTimeout)
		assert.Contains(t, err.Error(), `"s"`)
		assert.False(t, w.Running())

		unblock()
		select {
		case <-n.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("old worker did not return after release")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, w.Start(ctx))
		require.NoError(t, w.Wait(ctx))
		require.NoError(t, w.Stop(ctx))
		assert.Equal(t, uint64(1), n.Executions(), "the source fires once in the second run")
		assert.Equal(t, 2, stuck.CallCount(), "one firing per run, no leftover worker")
	})

	t.Run("benchmark reports", func(t *testing.T) {
		t.Parallel()
		logger, buf := testutil.NewLogger(t)
		w := New(testRegistry(), Options{Logger: logger, Benchmark: true, BenchmarkInterval: 5 * time.Millisecond, WaitTimeout: time.Millisecond})
		add(t, w, "text", "src")
		require.NoError(t, w.Start(context.Background()))
		require.Eventually(t, func() bool {
			return strings.Contains(buf.String(), "executionsPerSecond")
		}, time.Second, 5*time.Millisecond)
		require.NoError(t, w.Stop(context.Background()))
	})
}

func TestClear(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, Options{})
	add(t, w, "text", "a")
	add(t, w, "sink", "b")
	connect(t, w, "a.out", "b.in")

	require.NoError(t, w.Clear(context.Background()))
	assert.Empty(t, w.Nodes())
	assert.Empty(t, w.Edges())
}
