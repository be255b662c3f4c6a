package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"transcoder/internal/model"
)

func TestCreateAndGetProfile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := seedProfile(t, st)
	got, err := st.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "default", got.Name)
	require.Equal(t, "libx264", got.VideoCodec)
}

func TestGetProfileByName(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, st)

	got, err := st.GetProfileByName(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, "default", got.Name)

	_, err = st.GetProfileByName(ctx, "missing")
	require.Error(t, err)
}

func TestListProfiles(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, st)

	require.NoError(t, st.CreateProfile(ctx, &model.Profile{
		Name:            "H264_LOWRES_TC",
		VideoCodec:      "libx264",
		VideoBitrate:    "2M",
		AudioCodec:      "aac",
		AudioSampleRate: "48000",
		AudioChannels:   "2",
		Container:       "mp4",
	}))

	profiles, err := st.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
}

func TestUpdateProfile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, st)

	p.VideoBitrate = "10M"
	require.NoError(t, st.UpdateProfile(ctx, p))

	got, err := st.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "10M", got.VideoBitrate)
}

func TestDeleteProfile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, st)

	require.NoError(t, st.DeleteProfile(ctx, p.ID))
	_, err := st.GetProfile(ctx, p.ID)
	require.Error(t, err)
}

func TestDeleteProfile_RefusedWhenReferencedBySource(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, st)

	src := &model.Source{Name: "s1", Kind: model.SourceLocal, Active: true, Status: model.SourceIdle, ProfileID: p.ID}
	require.NoError(t, st.CreateSource(ctx, src))

	err := st.DeleteProfile(ctx, p.ID)
	require.ErrorIs(t, err, ErrProfileInUse)

	got, err := st.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
}

func TestDeleteProfile_RefusedWhenReferencedByJob(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, st)
	src := seedSource(t, st)

	_, _, err := st.InsertJobIfAbsent(ctx, src.ID, p.ID, "clip.mov", "/in/clip.mov", "/out/clip.mxf", 1024)
	require.NoError(t, err)

	err = st.DeleteProfile(ctx, p.ID)
	require.ErrorIs(t, err, ErrProfileInUse)

	_, err = st.GetProfile(ctx, p.ID)
	require.NoError(t, err)
}
