package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/internal/audittrail/registry"
)

func TestUserProviderDescribesEnabledEvents(t *testing.T) {
	reg := registry.New([]registry.Provider{NewUser()})

	categories := reg.Describe(context.Background())
	require.Len(t, categories, 1)
	c := categories[0]
	assert.Equal(t, UserCategory, c.Category)
	assert.Equal(t, UserProviderName, c.ProviderName)

	var names []string
	for _, e := range c.Events {
		names = append(names, e.EventName)
		assert.True(t, e.IsEnabledByDefault, e.FullEventName)
		assert.False(t, e.IsMandatory, e.FullEventName)
	}
	assert.Equal(t, []string{
		UserSignedUp, UserLoggedIn, UserLogInFailed, UserPasswordReset,
		UserPasswordRecovered, UserEnabled, UserDisabled, UserCreated,
	}, names)
}

func TestUserBuilderKeysPayloadByEventName(t *testing.T) {
	d, ok := registry.New([]registry.Provider{NewUser()}).DescribeEvent(context.Background(), "User.LoggedIn")
	require.True(t, ok)

	event := &models.AuditEvent{EventName: UserLoggedIn}
	data := map[string]any{"UserName": "alice", "UserId": "u-1"}
	d.Build(event, data)

	got, ok := event.Get(UserLoggedIn)
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestContentBuilderSetsCorrelationID(t *testing.T) {
	d, ok := registry.New([]registry.Provider{NewContent()}).DescribeEvent(context.Background(), "Content.Published")
	require.True(t, ok)

	event := &models.AuditEvent{EventName: ContentPublished}
	d.Build(event, map[string]any{ContentItemIDKey: "4x7abc", "ContentType": "Article"})

	assert.Equal(t, "4x7abc", event.CorrelationID)
	payload, ok := event.Get("ContentItem")
	require.True(t, ok)
	assert.Equal(t, "Article", payload.(map[string]any)["ContentType"])
}

func TestContentQueryFilter(t *testing.T) {
	filters := registry.New([]registry.Provider{NewContent()}).QueryFilters(context.Background())
	require.Len(t, filters, 1)

	t.Run("narrows by content item id", func(t *testing.T) {
		fc := query.NewFilterContext(query.New(), models.NewFilters(nil).Add(ContentItemFilterKey, " 4x7abc "))
		require.NoError(t, filters[0](context.Background(), fc))

		conds := fc.Query.Conditions()
		require.Len(t, conds, 1)
		assert.Equal(t, query.FieldCorrelationID, conds[0].Field)
		assert.Equal(t, "4x7abc", conds[0].Value)
	})

	t.Run("ignores searches without the key", func(t *testing.T) {
		fc := query.NewFilterContext(query.New(), models.NewFilters(nil).Add("user", "alice"))
		require.NoError(t, filters[0](context.Background(), fc))
		assert.Empty(t, fc.Query.Conditions())
	})
}

func TestUserAndContentShareLocalNamesWithoutClashing(t *testing.T) {
	reg := registry.New([]registry.Provider{NewUser(), NewContent()})

	user := reg.DescribeEvents(context.Background(), UserProviderName, "Created")
	require.Len(t, user, 1)
	assert.Equal(t, "User.Created", user[0].FullEventName)

	content := reg.DescribeEvents(context.Background(), ContentProviderName, "Created")
	require.Len(t, content, 1)
	assert.Equal(t, "Content.Created", content[0].FullEventName)
}
