// Package kube publishes session artifacts into a Kubernetes ConfigMap so
// in-cluster consumers can read the latest report.
package kube

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

const (
	ReportKey  = "report.md"
	ArchiveKey = "results.json"

	sessionLabel = "lighthouse-compare/session"

	namespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
)

type Publisher struct {
	client    kubernetes.Interface
	namespace string
	name      string
}

// NewInClusterPublisher uses the pod's service account. An empty
// namespace means the pod's own namespace.
func NewInClusterPublisher(namespace, name string) (*Publisher, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load in-cluster config")
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kubernetes client")
	}

	if namespace == "" {
		data, err := os.ReadFile(namespaceFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to detect namespace")
		}
		namespace = strings.TrimSpace(string(data))
	}
	return NewPublisher(client, namespace, name), nil
}

func NewPublisher(client kubernetes.Interface, namespace, name string) *Publisher {
	return &Publisher{client: client, namespace: namespace, name: name}
}

// Publish creates or replaces the ConfigMap contents with the session's
// report and archive.
func (p *Publisher) Publish(ctx context.Context, sessionID string, report, archive []byte) error {
	cms := p.client.CoreV1().ConfigMaps(p.namespace)

	data := map[string]string{
		ReportKey:  string(report),
		ArchiveKey: string(archive),
	}

	existing, err := cms.Get(ctx, p.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = cms.Create(ctx, &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      p.name,
				Namespace: p.namespace,
				Labels:    map[string]string{sessionLabel: sessionID},
			},
			Data: data,
		}, metav1.CreateOptions{})
		return errors.Wrapf(err, "create configmap %s/%s", p.namespace, p.name)
	}
	if err != nil {
		return errors.Wrapf(err, "get configmap %s/%s", p.namespace, p.name)
	}

	updated := existing.DeepCopy()
	updated.Data = data
	if updated.Labels == nil {
		updated.Labels = map[string]string{}
	}
	updated.Labels[sessionLabel] = sessionID

	_, err = cms.Update(ctx, updated, metav1.UpdateOptions{})
	return errors.Wrapf(err, "update configmap %s/%s", p.namespace, p.name)
}
