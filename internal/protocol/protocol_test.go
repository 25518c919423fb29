package protocol

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestValidate_badMagic(t *testing.T) {
	for _, magic := range []byte{0, 100, 102, 255} {
		frame := []byte{magic, 1, 1, 2, 3, 0}
		_, err := Validator{}.Validate(frame)
		if !errors.Is(err, ErrBadMagic) {
			t.Errorf("Validate(magic=%d) err = %v; want ErrBadMagic", magic, err)
		}
		if !errors.Is(err, ErrProtocol) {
			t.Errorf("Validate(magic=%d) err = %v; want it to wrap ErrProtocol", magic, err)
		}
	}
}

func TestValidate_versions(t *testing.T) {
	tests := []struct {
		name     string
		accepted []Version
		version  byte
		wantErr  bool
	}{
		{name: "default accepts 1", version: 1},
		{name: "default accepts 2", version: 2},
		{name: "default rejects 3", version: 3, wantErr: true},
		{name: "v1 only rejects 2", accepted: []Version{V1}, version: 2, wantErr: true},
		{name: "v1 only accepts 1", accepted: []Version{V1}, version: 1},
		{name: "unknown layout never accepted", accepted: []Version{V1, 7}, version: 7, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validator{Versions: tt.accepted}
			h, err := v.Validate([]byte{Magic, tt.version, 1, 2, 3, 0})
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedVersion) {
					t.Fatalf("Validate() err = %v; want ErrUnsupportedVersion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() err = %v; want nil", err)
			}
			if h.Version != Version(tt.version) {
				t.Errorf("Version = %d; want %d", h.Version, tt.version)
			}
		})
	}
}

func TestValidate_shortHeader(t *testing.T) {
	for _, frame := range [][]byte{nil, {Magic}, {Magic, 1, 1}, {Magic, 1, 1, 2, 3}} {
		_, err := Validator{}.Validate(frame)
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("Validate(%v) err = %v; want ErrTruncated", frame, err)
		}
	}
}

func TestValidate_shortFrameWithBadMagic(t *testing.T) {
	for _, frame := range [][]byte{{0}, {1, 2, 3}, {100, 1, 1, 2, 3}} {
		_, err := Validator{}.Validate(frame)
		if !errors.Is(err, ErrBadMagic) {
			t.Errorf("Validate(%v) err = %v; want ErrBadMagic", frame, err)
		}
	}
}

func TestValidate_filter(t *testing.T) {
	frame := []byte{Magic, 1, 0x01, 0x02, 0x03, 0}

	other := DeviceID{9, 9, 9}
	_, err := Validator{Filter: &other}.Validate(frame)
	if !errors.Is(err, ErrFilteredDevice) {
		t.Fatalf("Validate(filter 09:09:09) err = %v; want ErrFilteredDevice", err)
	}
	if errors.Is(err, ErrProtocol) {
		t.Error("filter rejection must not be a protocol error")
	}

	same := DeviceID{1, 2, 3}
	h, err := Validator{Filter: &same}.Validate(frame)
	if err != nil {
		t.Fatalf("Validate(filter 01:02:03) err = %v; want nil", err)
	}
	if h.Device != same {
		t.Errorf("Device = %s; want %s", h.Device, same)
	}
}

func TestDecode_v1CountAndOrder(t *testing.T) {
	for n := 0; n <= 8; n++ {
		readings := make([]Reading, n)
		for i := range readings {
			readings[i] = Reading{Temperature: Temperature{Whole: 10 + i, Hundredths: i}, Humidity: uint8(40 + i)}
		}
		frame, err := Encode(V1, DeviceID{1, 2, 3}, readings)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}

		_, seq, err := Validator{}.Parse(frame)
		if err != nil {
			t.Fatalf("Parse(n=%d): %v", n, err)
		}
		got := slices.Collect(seq)
		if len(got) != n {
			t.Fatalf("n=%d: got %d measurements", n, len(got))
		}
		for i, m := range got {
			if m.Probe != i {
				t.Errorf("n=%d: measurement %d has probe %d", n, i, m.Probe)
			}
		}
	}
}

func TestDecode_v1RoundTrip(t *testing.T) {
	for whole := 0; whole <= 255; whole += 17 {
		for _, hundredths := range []int{0, 1, 50, 99} {
			for _, hum := range []uint8{0, 60, 100, 255} {
				in := Reading{Temperature: Temperature{Whole: whole, Hundredths: hundredths}, Humidity: hum}
				frame, err := Encode(V1, DeviceID{0xaa, 0xbb, 0xcc}, []Reading{in})
				if err != nil {
					t.Fatalf("Encode: %v", err)
				}
				_, seq, err := Validator{}.Parse(frame)
				if err != nil {
					t.Fatalf("Parse: %v", err)
				}
				got := slices.Collect(seq)
				if len(got) != 1 {
					t.Fatalf("got %d measurements; want 1", len(got))
				}
				if got[0].Temperature != in.Temperature || got[0].Humidity != hum {
					t.Errorf("round trip %+v: got %+v / %d", in, got[0].Temperature, got[0].Humidity)
				}
			}
		}
	}
}

func TestDecode_v2Float(t *testing.T) {
	tests := []struct {
		celsius float32
		want    Temperature
	}{
		{celsius: 23.75, want: Temperature{Whole: 23, Hundredths: 75}},
		{celsius: -1.5, want: Temperature{Whole: -2, Hundredths: 50}},
		{celsius: -2.34, want: Temperature{Whole: -3, Hundredths: 66}},
		{celsius: 0, want: Temperature{Whole: 0, Hundredths: 0}},
		{celsius: 19.999, want: Temperature{Whole: 20, Hundredths: 0}},
		{celsius: -0.25, want: Temperature{Whole: -1, Hundredths: 75}},
	}

	for _, tt := range tests {
		frame, err := Encode(V2, DeviceID{1, 2, 3}, []Reading{{Celsius: tt.celsius, Humidity: 42}})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		_, seq, err := Validator{}.Parse(frame)
		if err != nil {
			t.Fatalf("Parse(%v): %v", tt.celsius, err)
		}
		got := slices.Collect(seq)
		if len(got) != 1 {
			t.Fatalf("got %d measurements; want 1", len(got))
		}
		if got[0].Temperature != tt.want {
			t.Errorf("decode %v = %+v; want %+v", tt.celsius, got[0].Temperature, tt.want)
		}
		if got[0].Humidity != 42 {
			t.Errorf("humidity = %d; want 42", got[0].Humidity)
		}
	}
}

func TestSplitCelsius_sentinels(t *testing.T) {
	for _, v := range []float64{129, 300.5, 1e12} {
		if got := SplitCelsius(v); got.Valid() {
			t.Errorf("SplitCelsius(%v) = %+v; want invalid", v, got)
		}
	}
	if got := SplitCelsius(math.NaN()); got.Valid() {
		t.Errorf("SplitCelsius(NaN) = %+v; want invalid", got)
	}
}

func TestDecode_truncated(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "v1 one byte short", frame: []byte{Magic, 1, 1, 2, 3, 2, 20, 50, 60, 21, 0}},
		{name: "v1 no records", frame: []byte{Magic, 1, 1, 2, 3, 1}},
		{name: "v2 record cut", frame: []byte{Magic, 2, 1, 2, 3, 1, 0, 0, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Validator{}.Validate(tt.frame)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			seq, err := Decode(tt.frame, h)
			if !errors.Is(err, ErrTruncated) {
				t.Fatalf("Decode err = %v; want ErrTruncated", err)
			}
			if seq != nil {
				t.Error("Decode returned a sequence for a truncated frame")
			}
		})
	}
}

func TestDecode_zeroProbes(t *testing.T) {
	_, seq, err := Validator{}.Parse([]byte{Magic, 2, 1, 2, 3, 0})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := slices.Collect(seq); len(got) != 0 {
		t.Fatalf("got %d measurements; want 0", len(got))
	}
}

func TestDecode_exampleDatagram(t *testing.T) {
	frame := []byte{101, 1, 0x01, 0x02, 0x03, 2, 20, 50, 60, 130, 0, 255}

	_, seq, err := Validator{}.Parse(frame)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := slices.Collect(seq)
	want := []Measurement{
		{Device: DeviceID{1, 2, 3}, Probe: 0, Temperature: Temperature{Whole: 20, Hundredths: 50}, Humidity: 60},
		{Device: DeviceID{1, 2, 3}, Probe: 1, Temperature: Temperature{Whole: 130, Hundredths: 0}, Humidity: 255},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("measurements = %+v; want %+v", got, want)
	}
	if !got[0].Temperature.Valid() || !got[0].HumidityValid() {
		t.Error("probe 0 should be fully valid")
	}
	if got[1].AnyValid() {
		t.Error("probe 1 should carry no valid field")
	}

	filter := DeviceID{9, 9, 9}
	if _, _, err := (Validator{Filter: &filter}).Parse(frame); !errors.Is(err, ErrFilteredDevice) {
		t.Fatalf("Parse with filter err = %v; want ErrFilteredDevice", err)
	}
}

func TestDecode_stopsEarly(t *testing.T) {
	frame := []byte{Magic, 1, 1, 2, 3, 3, 1, 0, 1, 2, 0, 2, 3, 0, 3}
	_, seq, err := Validator{}.Parse(frame)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("iterated %d; want 2", n)
	}
}

func TestParseDeviceID(t *testing.T) {
	for _, in := range []string{"01:02:03", "010203", " 01:02:03 "} {
		got, err := ParseDeviceID(in)
		if err != nil {
			t.Fatalf("ParseDeviceID(%q): %v", in, err)
		}
		if got != (DeviceID{1, 2, 3}) {
			t.Errorf("ParseDeviceID(%q) = %v", in, got)
		}
	}
	for _, in := range []string{"", "0102", "01:02:03:04", "zz:02:03"} {
		if _, err := ParseDeviceID(in); err == nil {
			t.Errorf("ParseDeviceID(%q) = nil error; want error", in)
		}
	}
	if s := (DeviceID{0xab, 0x0c, 0xff}).String(); s != "ab:0c:ff" {
		t.Errorf("String() = %q; want ab:0c:ff", s)
	}
	if s := (DeviceID{0xab, 0x0c, 0xff}).Hex(); s != "ab0cff" {
		t.Errorf("Hex() = %q; want ab0cff", s)
	}
}

func TestParseVersions(t *testing.T) {
	got, err := ParseVersions(" 2, 1 ,2")
	if err != nil {
		t.Fatalf("ParseVersions: %v", err)
	}
	if !slices.Equal(got, []Version{V2, V1}) {
		t.Errorf("ParseVersions = %v; want [2 1]", got)
	}
	for _, in := range []string{"", "3", "a", "1,256"} {
		if _, err := ParseVersions(in); err == nil {
			t.Errorf("ParseVersions(%q) = nil error; want error", in)
		}
	}
}
