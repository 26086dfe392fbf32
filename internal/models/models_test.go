package models

import (
	"encoding/json"
	"testing"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Table
		wantErr bool
	}{
		{name: "setting", input: "setting", want: TableSetting},
		{name: "view", input: "view", want: TableView},
		{name: "feeds with spaces", input: " feeds ", want: TableFeeds},
		{name: "items", input: "items", want: TableItems},
		{name: "unknown", input: "episodes", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTable(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTable(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTable(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTable(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTableSingleton(t *testing.T) {
	for _, table := range Tables {
		want := table == TableSetting || table == TableView
		if table.Singleton() != want {
			t.Errorf("%s.Singleton() = %v, want %v", table, table.Singleton(), want)
		}
	}
}

func TestModel(t *testing.T) {
	model := Model{
		Feeds: []Feed{{URL: "x", Title: "X"}, {URL: "y"}},
		Items: []Item{
			{URL: "x/1", FeedURL: "x"},
			{URL: "y/1", FeedURL: "y"},
			{URL: "x/2", FeedURL: "x"},
		},
	}

	t.Run("ItemsForFeed", func(t *testing.T) {
		items := model.ItemsForFeed("x")
		if len(items) != 2 || items[0].URL != "x/1" || items[1].URL != "x/2" {
			t.Errorf("unexpected items for feed x: %+v", items)
		}
		if got := model.ItemsForFeed("z"); len(got) != 0 {
			t.Errorf("expected no items for unknown feed, got %+v", got)
		}
	})

	t.Run("FeedByURL", func(t *testing.T) {
		feed, ok := model.FeedByURL("x")
		if !ok || feed.Title != "X" {
			t.Errorf("FeedByURL(x) = %+v, %v", feed, ok)
		}
		if _, ok := model.FeedByURL("z"); ok {
			t.Error("FeedByURL(z) should not be found")
		}
	})

	t.Run("JSON shape", func(t *testing.T) {
		data, err := json.Marshal(Model{})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `{"feeds":null,"items":null}` {
			t.Errorf("unexpected empty model encoding: %s", data)
		}

		data, _ = json.Marshal(Item{URL: "u", FeedURL: "f"})
		if string(data) != `{"url":"u","feedUrl":"f"}` {
			t.Errorf("unexpected item encoding: %s", data)
		}
	})
}

func TestExtraMembers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "feed without extras", in: `{"url":"X","title":"T"}`, want: `{"url":"X","title":"T"}`},
		{name: "feed keeps extras sorted", in: `{"tags":["a"],"url":"X","lastUpdated":1700000000}`, want: `{"url":"X","lastUpdated":1700000000,"tags":["a"]}`},
		{name: "null extra", in: `{"url":"X","etag":null}`, want: `{"url":"X","etag":null}`},
		{name: "empty url with extras", in: `{"url":"","guid":"g"}`, want: `{"url":"","guid":"g"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var feed Feed
			if err := json.Unmarshal([]byte(tt.in), &feed); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			data, err := json.Marshal(feed)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, data)
			}
		})
	}

	t.Run("item update keeps extras", func(t *testing.T) {
		var item Item
		if err := json.Unmarshal([]byte(`{"url":"u","feedUrl":"f","chapters":[1,2]}`), &item); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		item.Progress = 30
		item.Played = true

		data, _ := json.Marshal(item)
		if want := `{"url":"u","feedUrl":"f","progress":30,"played":true,"chapters":[1,2]}`; string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("declared names are not duplicated", func(t *testing.T) {
		item := Item{URL: "u", Extra: Extra{"url": json.RawMessage(`"other"`)}}
		data, _ := json.Marshal(item)
		if string(data) != `{"url":"u","feedUrl":""}` {
			t.Errorf("unexpected encoding: %s", data)
		}
	})

	t.Run("no extras decodes to nil", func(t *testing.T) {
		var item Item
		json.Unmarshal([]byte(`{"url":"u"}`), &item)
		if item.Extra != nil {
			t.Errorf("expected nil extras, got %v", item.Extra)
		}
	})
}

func TestValidate(t *testing.T) {
	if err := (Feed{}).Validate(); err == nil {
		t.Error("feed without url should be invalid")
	}
	if err := (Item{URL: "  "}).Validate(); err == nil {
		t.Error("item with blank url should be invalid")
	}
	if err := (Item{URL: "a"}).Validate(); err != nil {
		t.Errorf("item with url should be valid: %v", err)
	}
}

func TestPlaybackRequest(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			req     PlaybackRequest
			wantErr bool
		}{
			{name: "url only", req: PlaybackRequest{URL: "a.mp3"}},
			{name: "all fields", req: PlaybackRequest{URL: "a.mp3", Seek: Float(10), Rate: Float(1.5), Volume: Float(0.5), Muted: Bool(true)}},
			{name: "missing url", req: PlaybackRequest{}, wantErr: true},
			{name: "volume too high", req: PlaybackRequest{URL: "a.mp3", Volume: Float(1.5)}, wantErr: true},
			{name: "negative volume", req: PlaybackRequest{URL: "a.mp3", Volume: Float(-0.1)}, wantErr: true},
			{name: "zero rate", req: PlaybackRequest{URL: "a.mp3", Rate: Float(0)}, wantErr: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.req.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("SeekTo", func(t *testing.T) {
		tests := []struct {
			name   string
			seek   *float64
			want   float64
			wantOK bool
		}{
			{name: "absent", seek: nil},
			{name: "negative sentinel", seek: Float(-1)},
			{name: "zero", seek: Float(0), want: 0, wantOK: true},
			{name: "positive", seek: Float(42.5), want: 42.5, wantOK: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, ok := PlaybackRequest{URL: "a", Seek: tt.seek}.SeekTo()
				if got != tt.want || ok != tt.wantOK {
					t.Errorf("SeekTo() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
				}
			})
		}
	})

	t.Run("JSON field names", func(t *testing.T) {
		var req PlaybackRequest
		if err := json.Unmarshal([]byte(`{"url":"a","vol":0.3,"muted":false,"seek":-1}`), &req); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if req.Volume == nil || *req.Volume != 0.3 {
			t.Errorf("expected vol to decode into Volume, got %v", req.Volume)
		}
		if req.Muted == nil || *req.Muted {
			t.Errorf("expected muted=false to be present, got %v", req.Muted)
		}
		if req.Rate != nil {
			t.Errorf("expected absent rate, got %v", *req.Rate)
		}
	})
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{SoundLoaded, "soundLoaded"},
		{PlayError, "playError"},
		{PlayEnd, "playEnd"},
		{UpdateProgress, "updateProgress"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}

	if got := PlayErrorEvent("u"); got.Kind != PlayError || got.URL != "u" {
		t.Errorf("PlayErrorEvent = %+v", got)
	}
	if got := UpdateProgressEvent(ProgressSample{Progress: 1, Duration: 2}); got.Sample.Duration != 2 {
		t.Errorf("UpdateProgressEvent = %+v", got)
	}
}
