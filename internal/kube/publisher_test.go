package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestPublish_Creates(t *testing.T) {
	client := fake.NewSimpleClientset()
	p := NewPublisher(client, "perf", "lighthouse-report")

	require.NoError(t, p.Publish(context.Background(), "s1", []byte("# Report"), []byte("[]")))

	cm, err := client.CoreV1().ConfigMaps("perf").Get(context.Background(), "lighthouse-report", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "# Report", cm.Data[ReportKey])
	assert.Equal(t, "[]", cm.Data[ArchiveKey])
	assert.Equal(t, "s1", cm.Labels[sessionLabel])
}

func TestPublish_Replaces(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "lighthouse-report",
			Namespace: "perf",
			Labels:    map[string]string{"team": "web"},
		},
		Data: map[string]string{ReportKey: "old", "stale": "x"},
	})
	p := NewPublisher(client, "perf", "lighthouse-report")

	require.NoError(t, p.Publish(context.Background(), "s2", []byte("new"), []byte("[]")))

	cm, err := client.CoreV1().ConfigMaps("perf").Get(context.Background(), "lighthouse-report", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{ReportKey: "new", ArchiveKey: "[]"}, cm.Data)
	assert.Equal(t, "web", cm.Labels["team"])
	assert.Equal(t, "s2", cm.Labels[sessionLabel])
}
