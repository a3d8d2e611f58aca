package command

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gwillem/kraken/pkg/gamepad"
)

func axes(a map[gamepad.Axis]float64) gamepad.Snapshot {
	return gamepad.NewSnapshot(nil, a)
}

func buttons(b ...gamepad.Button) gamepad.Snapshot {
	m := make(map[gamepad.Button]bool, len(b))
	for _, name := range b {
		m[name] = true
	}
	return gamepad.NewSnapshot(m, nil)
}

// run feeds snaps through a fresh seeded Differ and returns the tokens per tick.
func run(t *testing.T, snaps ...gamepad.Snapshot) [][]string {
	t.Helper()
	d := NewDiffer(DefaultConfig())
	if _, err := d.Step(gamepad.NewSnapshot(nil, nil)); err != nil {
		t.Fatal(err)
	}
	var out [][]string
	for _, s := range snaps {
		cmds, err := d.Step(s)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, Tokens(cmds))
	}
	return out
}

func TestDiffer_Scenario(t *testing.T) {
	d := NewDiffer(DefaultConfig())

	if _, err := d.Step(gamepad.Disconnected()); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("disconnected tick: err = %v, want ErrDisconnected", err)
	}

	ticks := []gamepad.Snapshot{
		axes(map[gamepad.Axis]float64{gamepad.LeftX: 0, gamepad.LeftTrigger: 0}),
		axes(map[gamepad.Axis]float64{gamepad.LeftX: 0.5, gamepad.LeftTrigger: 0}),
		axes(map[gamepad.Axis]float64{gamepad.LeftX: 0.5, gamepad.LeftTrigger: 0.5}),
		axes(map[gamepad.Axis]float64{gamepad.LeftX: 0.5, gamepad.LeftTrigger: 0}),
	}
	want := [][]string{{}, {"k"}, {"k", "L"}, {"k", "S"}}

	for i, s := range ticks {
		cmds, err := d.Step(s)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if got := Tokens(cmds); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("tick %d: tokens = %v, want %v", i, got, want[i])
		}
	}
}

func TestDiffer_SeedingTickEmitsNothing(t *testing.T) {
	busy := gamepad.NewSnapshot(
		map[gamepad.Button]bool{gamepad.LB: true, gamepad.RB: true, gamepad.Start: true},
		map[gamepad.Axis]float64{
			gamepad.LeftX: 1, gamepad.LeftY: -1, gamepad.RightY: 1,
			gamepad.LeftTrigger: 1, gamepad.RightTrigger: 1,
		},
	)

	d := NewDiffer(DefaultConfig())
	cmds, err := d.Step(busy)
	if err != nil || len(cmds) != 0 {
		t.Errorf("seeding tick = %v, %v; want no commands", Tokens(cmds), err)
	}
	if !d.Seeded() {
		t.Error("baseline not stored")
	}

	d.Reset()
	if d.Seeded() {
		t.Error("Reset should drop the baseline")
	}
	if cmds, _ := d.Step(busy); len(cmds) != 0 {
		t.Errorf("tick after Reset = %v, want no commands", Tokens(cmds))
	}
}

func TestDiffer_Deadzone(t *testing.T) {
	tests := []struct {
		axis gamepad.Axis
		v    float64
		want []string
	}{
		{gamepad.LeftX, 0.25, []string{}},
		{gamepad.LeftX, -0.25, []string{}},
		{gamepad.LeftX, 0.1, []string{}},
		{gamepad.LeftX, 0.26, []string{"k"}},
		{gamepad.LeftX, -0.26, []string{"j"}},
		{gamepad.LeftY, -0.9, []string{"i"}},
		{gamepad.LeftY, 0.9, []string{"m"}},
		{gamepad.RightY, -0.9, []string{"o"}},
		{gamepad.RightY, 0.9, []string{"p"}},
		{gamepad.RightX, 1, []string{}},
	}

	for _, tt := range tests {
		s := axes(map[gamepad.Axis]float64{tt.axis: tt.v})
		got := run(t, s, s, s)
		for tick, tokens := range got {
			if !reflect.DeepEqual(tokens, tt.want) {
				t.Errorf("%s=%.2f tick %d: tokens = %v, want %v", tt.axis, tt.v, tick, tokens, tt.want)
			}
		}
	}
}

func TestDiffer_TriggerEdges(t *testing.T) {
	low := axes(map[gamepad.Axis]float64{gamepad.RightTrigger: 0.05})
	edge := axes(map[gamepad.Axis]float64{gamepad.RightTrigger: 0.1})
	high := axes(map[gamepad.Axis]float64{gamepad.RightTrigger: 0.8})

	got := run(t, low, edge, high, high, high, low, low, high)
	want := [][]string{{}, {}, {"R"}, {}, {}, {"S"}, {}, {"R"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestDiffer_BothTriggersShareStop(t *testing.T) {
	both := axes(map[gamepad.Axis]float64{gamepad.LeftTrigger: 1, gamepad.RightTrigger: 1})
	none := axes(nil)

	got := run(t, both, none)
	want := [][]string{{"L", "R"}, {"S", "S"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestDiffer_ButtonsAreEdgeTriggered(t *testing.T) {
	none := buttons()
	lb := buttons(gamepad.LB)
	rb := buttons(gamepad.RB)
	start := buttons(gamepad.Start)

	got := run(t, lb, lb, lb, none, rb, rb, start, start, none)
	want := [][]string{{"q"}, {}, {}, {}, {"w"}, {}, {"c"}, {}, {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestDiffer_DisconnectReseeds(t *testing.T) {
	d := NewDiffer(DefaultConfig())
	held := gamepad.NewSnapshot(
		map[gamepad.Button]bool{gamepad.RB: true},
		map[gamepad.Axis]float64{gamepad.LeftTrigger: 1},
	)

	d.Step(gamepad.NewSnapshot(nil, nil))
	if cmds, _ := d.Step(held); !reflect.DeepEqual(Tokens(cmds), []string{"L", "w"}) {
		t.Fatalf("tokens = %v", Tokens(cmds))
	}

	if _, err := d.Step(gamepad.Disconnected()); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("err = %v, want ErrDisconnected", err)
	}
	if d.Seeded() {
		t.Error("disconnect should clear the baseline")
	}

	// Reconnect with the trigger released: the first tick only seeds.
	if cmds, _ := d.Step(gamepad.NewSnapshot(nil, nil)); len(cmds) != 0 {
		t.Errorf("reseed tick = %v, want nothing", Tokens(cmds))
	}
}

func TestDiffer_CustomVocabulary(t *testing.T) {
	voc, err := ParseVocabulary(map[string]string{"base_right": "K"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Vocabulary = voc
	d := NewDiffer(cfg)

	s := axes(map[gamepad.Axis]float64{gamepad.LeftX: 1})
	d.Step(s)
	cmds, _ := d.Step(s)
	if len(cmds) != 1 || cmds[0].Token != 'K' || cmds[0].Action != BaseRight {
		t.Errorf("cmds = %+v, want base_right K", cmds)
	}
}

func TestDiffer_UnmappedActionIsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Vocabulary, BaseRight)
	d := NewDiffer(cfg)

	s := axes(map[gamepad.Axis]float64{gamepad.LeftX: 1, gamepad.LeftY: 1})
	d.Step(s)
	cmds, _ := d.Step(s)
	if got := Tokens(cmds); !reflect.DeepEqual(got, []string{"m"}) {
		t.Errorf("tokens = %v, want [m]", got)
	}
}

func TestParseVocabulary(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]string
		wantErr bool
	}{
		{"empty", nil, false},
		{"override", map[string]string{"recenter": "z"}, false},
		{"unknown action", map[string]string{"wrist_roll": "x"}, true},
		{"two chars", map[string]string{"recenter": "cc"}, true},
		{"newline", map[string]string{"recenter": "\n"}, true},
		{"space", map[string]string{"recenter": " "}, true},
	}
	for _, tt := range tests {
		_, err := ParseVocabulary(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestVocabulary_EncodeRoundTrip(t *testing.T) {
	v := DefaultVocabulary()
	back, err := ParseVocabulary(v.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, v) {
		t.Errorf("round trip changed vocabulary: %v", back)
	}
	if len(Actions()) != len(v) {
		t.Errorf("Actions() = %d entries, vocabulary has %d", len(Actions()), len(v))
	}
}
