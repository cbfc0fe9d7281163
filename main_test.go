package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runReplay(t *testing.T, args ...string) map[string]interface{} {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs(append([]string{"replay"}, args...))
	require.NoError(t, root.Execute())

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res), out.String())
	return res
}

func TestReplayIndexEquipment(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.json", `{}`)
	event := writeFile(t, dir, "event.json", `{"path":"/equipment/eq1","after":{"name":"Kayak"}}`)

	res := runReplay(t, "indexEquipment", event, "--db", db, "--buckets", dir, "--dry-run", "--search", "memory")
	assert.Equal(t, "indexEquipment", res["trigger"])
	assert.Equal(t, "completed", res["status"])
}

func TestReplayReservationDryRun(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.json", `{
		"users": {
			"owner": {"displayName": "Olive", "notificationTokens": {"tok-a": true}},
			"borrower": {"displayName": "Ben"}
		},
		"equipment": {"eq1": {"name": "Kayak"}}
	}`)
	event := writeFile(t, dir, "event.json", `{"path":"/reservations/r1","after":{"ownerId":"owner","borrowerId":"borrower","equipmentId":"eq1"}}`)

	res := runReplay(t, "onEquipmentReserved", event, "--db", db, "--buckets", dir, "--dry-run", "--search", "memory")
	assert.Equal(t, "completed", res["status"])
}

func TestReplayThumbnailFromLocalBucket(t *testing.T) {
	dir := t.TempDir()
	buckets := filepath.Join(dir, "buckets")
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 400, 100))))
	writeFile(t, buckets, "gear/photos/a.png", img.String())

	db := writeFile(t, dir, "db.json", `{}`)
	event := writeFile(t, dir, "event.json", `{"bucket":"gear","name":"photos/a.png","contentType":"image/png","resourceState":"exists","metageneration":"1"}`)

	res := runReplay(t, "generateThumbnail", event, "--db", db, "--buckets", buckets, "--dry-run", "--search", "memory")
	assert.Equal(t, "completed", res["status"])

	f, err := os.Open(filepath.Join(buckets, "gear", "photos", "thumbnail_a.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestReplayUnknownTrigger(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.json", `{}`)
	event := writeFile(t, dir, "event.json", `{"path":"/x"}`)

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"replay", "nope", event, "--db", db, "--buckets", dir, "--dry-run", "--search", "memory"})
	assert.Error(t, root.Execute())
}
