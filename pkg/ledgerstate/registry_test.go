package ledgerstate_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
)

const (
	widgetClass = "test.widget"
	gadgetClass = "test.gadget"
)

type widget struct {
	Maker  string `json:"maker"`
	Serial string `json:"serial"`
}

func (w *widget) Class() string { return widgetClass }

func (w *widget) Key() string {
	k, _ := ledgerstate.MakeKey(w.Maker, w.Serial)
	return k
}

func (w *widget) ToBuffer() ([]byte, error) { return ledgerstate.Encode(widgetClass, w) }

type gadget struct {
	Name string `json:"name"`
}

func (g *gadget) Class() string             { return gadgetClass }
func (g *gadget) Key() string               { return g.Name }
func (g *gadget) ToBuffer() ([]byte, error) { return ledgerstate.Encode(gadgetClass, g) }

func newTestRegistry() *ledgerstate.Registry {
	r := ledgerstate.NewRegistry()
	r.Register(widgetClass, func(env *ledgerstate.Envelope) (ledgerstate.State, error) {
		w := &widget{}
		if err := env.DecodeFields(w); err != nil {
			return nil, err
		}
		return w, nil
	})
	r.Register(gadgetClass, func(env *ledgerstate.Envelope) (ledgerstate.State, error) {
		g := &gadget{}
		if err := env.DecodeFields(g); err != nil {
			return nil, err
		}
		return g, nil
	})
	return r
}

func TestRegistry_Decode_dispatchesOnTypeTag(t *testing.T) {
	r := newTestRegistry()

	wbuf, _ := (&widget{Maker: "acme", Serial: "1"}).ToBuffer()
	gbuf, _ := (&gadget{Name: "g"}).ToBuffer()

	ws, err := r.Decode(wbuf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ws.(*widget); !ok {
		t.Errorf("widget buffer decoded to %T", ws)
	}

	gs, err := r.Decode(gbuf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gs.(*gadget); !ok {
		t.Errorf("gadget buffer decoded to %T", gs)
	}
}

func TestUnmarshal_roundTrip(t *testing.T) {
	r := newTestRegistry()
	in := &widget{Maker: "acme", Serial: "42"}
	buf, err := in.ToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	out, err := ledgerstate.Unmarshal[*widget](r, buf, widgetClass)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
	if out.Key() != "acme:42" {
		t.Errorf("Key() = %q", out.Key())
	}
}

func TestUnmarshal_typeMismatch(t *testing.T) {
	r := newTestRegistry()
	buf, _ := (&gadget{Name: "g"}).ToBuffer()

	_, err := ledgerstate.Unmarshal[*widget](r, buf, widgetClass)
	var tm *ledgerstate.TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if tm.Got != gadgetClass {
		t.Errorf("Got = %q, want %q", tm.Got, gadgetClass)
	}
}

func TestUnmarshal_goTypeMismatch(t *testing.T) {
	r := newTestRegistry()
	buf, _ := (&widget{Maker: "acme", Serial: "1"}).ToBuffer()

	// Correct tag, wrong Go type parameter.
	_, err := ledgerstate.Unmarshal[*gadget](r, buf, widgetClass)
	var tm *ledgerstate.TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestRegistry_unregisteredTag(t *testing.T) {
	r := ledgerstate.NewRegistry()
	buf, _ := (&widget{Maker: "acme", Serial: "1"}).ToBuffer()

	_, err := r.Decode(buf)
	var de *ledgerstate.DeserializationError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeserializationError, got %v", err)
	}
}

func TestRegistry_constructorError(t *testing.T) {
	r := ledgerstate.NewRegistry()
	wantErr := &ledgerstate.DeserializationError{Msg: "missing maker"}
	r.Register(widgetClass, func(*ledgerstate.Envelope) (ledgerstate.State, error) {
		return nil, wantErr
	})
	buf, _ := (&widget{}).ToBuffer()

	if _, err := r.Decode(buf); !errors.Is(err, wantErr) {
		t.Fatalf("expected constructor error, got %v", err)
	}
}

func TestRegistry_Register_panics(t *testing.T) {
	ctor := func(*ledgerstate.Envelope) (ledgerstate.State, error) { return &widget{}, nil }

	cases := map[string]func(r *ledgerstate.Registry){
		"empty tag":       func(r *ledgerstate.Registry) { r.Register("", ctor) },
		"nil constructor": func(r *ledgerstate.Registry) { r.Register(widgetClass, nil) },
		"duplicate": func(r *ledgerstate.Registry) {
			r.Register(widgetClass, ctor)
			r.Register(widgetClass, ctor)
		},
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn(ledgerstate.NewRegistry())
		})
	}
}

func TestRegistry_Classes(t *testing.T) {
	got := newTestRegistry().Classes()
	want := []string{gadgetClass, widgetClass}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Classes() = %v, want %v", got, want)
	}
}
