package graph

import "testing"

func TestToNode(t *testing.T) {
	r := ToNode("a")
	if r.Kind != RouteNode || r.Node != "a" {
		t.Errorf("ToNode = %+v", r)
	}
}

func TestToNodes(t *testing.T) {
	r := ToNodes("a", "b")
	if r.Kind != RouteNodes || len(r.Nodes) != 2 {
		t.Errorf("ToNodes = %+v", r)
	}
}

func TestToSend(t *testing.T) {
	r := ToSend(Send{Node: "a", Input: 1})
	if r.Kind != RouteSend || r.Send.Node != "a" {
		t.Errorf("ToSend = %+v", r)
	}
}

func TestToSends(t *testing.T) {
	r := ToSends(Send{Node: "a"}, Send{Node: "b"})
	if r.Kind != RouteSends || len(r.Sends) != 2 {
		t.Errorf("ToSends = %+v", r)
	}
}

func TestRouter_InspectsOutput(t *testing.T) {
	router := Router(func(output Value) Route {
		if output == "go-b" {
			return ToNode("b")
		}
		return ToNode("a")
	})
	if got := router("go-b"); got.Node != "b" {
		t.Errorf("router(go-b) = %+v, want node b", got)
	}
	if got := router("anything-else"); got.Node != "a" {
		t.Errorf("router(other) = %+v, want node a", got)
	}
}
