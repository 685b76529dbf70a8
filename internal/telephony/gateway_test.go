package telephony

import (
	"encoding/json"
	"testing"
)

func TestWsEvent_ParsesStartWithCustomField(t *testing.T) {
	raw := `{"event":"start","start":{"call_sid":"CA123","stream_sid":"ST1","from":"+919876543210","to":"+911234567890"},"customField":"{\"campaign_id\":1,\"lead_id\":2,\"agent_name\":\"Alex\",\"lead_name\":\"Rajesh\",\"property_type\":\"3BHK\",\"location\":\"Whitefield\",\"budget\":\"80 lakhs\"}"}`

	var evt wsEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if evt.Event != "start" {
		t.Fatalf("expected event=start, got %q", evt.Event)
	}
	if evt.Start == nil || evt.Start.CallSID != "CA123" {
		t.Fatal("expected start payload with call_sid CA123")
	}

	var lead leadContext
	if err := json.Unmarshal([]byte(evt.CustomField), &lead); err != nil {
		t.Fatalf("unmarshal customField failed: %v", err)
	}
	if lead.LeadName != "Rajesh" || lead.CampaignID != 1 || lead.LeadID != 2 {
		t.Errorf("unexpected lead context: %+v", lead)
	}
}

func TestWsEvent_ParsesMedia(t *testing.T) {
	raw := `{"event":"media","media":{"payload":"YWJjZA=="}}`
	var evt wsEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if evt.Media == nil || evt.Media.Payload != "YWJjZA==" {
		t.Error("expected decoded media payload")
	}
}

func TestWsEvent_ParsesDTMF(t *testing.T) {
	raw := `{"event":"dtmf","dtmf":{"digit":"5"}}`
	var evt wsEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if evt.DTMF == nil || evt.DTMF.Digit != "5" {
		t.Error("expected dtmf digit 5")
	}
}

func TestOutboundFrame_MarshalsExpectedShape(t *testing.T) {
	frame := outboundFrame{Event: "media", StreamSID: "ST1", Media: outboundMedia{Payload: "abcd"}}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var roundTrip map[string]any
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if roundTrip["streamSid"] != "ST1" {
		t.Errorf("expected streamSid ST1, got %v", roundTrip["streamSid"])
	}
}

func TestGateway_ConnectionMapIsEmptyInitially(t *testing.T) {
	g := NewGateway(nil, nil, nil, nil, nil, nil, nil)
	if g.ActiveCallCount() != 0 {
		t.Error("expected a freshly built gateway to have no active calls")
	}
}
