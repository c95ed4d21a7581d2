package metricsendpoints

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"

	corev1 "k8s.io/api/core/v1"

	"github.com/sapcc/go-bits/logg"
)

// namespaceFile is where kubelet projects the pod's own namespace.
const namespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

var serviceNameRx = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// K8sServiceEndpoints watches the Kubernetes Endpoints object backing a
// service in the pod's own namespace and resolves to one scrape URL per
// backing pod IP, using a SharedInformerFactory rather than polling the API
// server directly.
type K8sServiceEndpoints struct {
	url         *url.URL
	serviceName string

	mu  sync.RWMutex
	ips []string
}

// NewK8sServiceEndpoints starts watching the Kubernetes service named by
// serviceURL.Hostname() in the pod's own namespace. It must be run from
// within a Kubernetes pod with RBAC access to watch "endpoints" in its
// namespace.
func NewK8sServiceEndpoints(serviceURL *url.URL) (*K8sServiceEndpoints, error) {
	serviceName := serviceURL.Hostname()
	if serviceName == "" {
		return nil, fmt.Errorf("metricsendpoints: k8s service name is empty")
	}
	if !serviceNameRx.MatchString(serviceName) {
		return nil, fmt.Errorf("metricsendpoints: invalid k8s service name %q", serviceName)
	}

	namespaceBytes, err := os.ReadFile(namespaceFile)
	if err != nil {
		return nil, fmt.Errorf("metricsendpoints: reading %s (probably not running in Kubernetes): %w", namespaceFile, err)
	}
	namespace := strings.TrimSpace(string(namespaceBytes))

	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("metricsendpoints: building in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("metricsendpoints: building Kubernetes client: %w", err)
	}

	k := &K8sServiceEndpoints{
		url:         serviceURL,
		serviceName: serviceName,
	}

	factory := informers.NewSharedInformerFactoryWithOptions(clientset, 0,
		informers.WithNamespace(namespace),
		informers.WithTweakListOptions(func(opts *metav1.ListOptions) {
			opts.FieldSelector = "metadata.name=" + serviceName
		}),
	)
	endpointsInformer := factory.Core().V1().Endpoints().Informer()
	endpointsInformer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc:    k.onEndpointsChanged,
		UpdateFunc: func(_, obj any) { k.onEndpointsChanged(obj) },
		DeleteFunc: func(any) { k.setIPs(nil) },
	})

	// A 410 Gone just means the watch's resource version aged out of the
	// API server's history; client-go's Reflector restarts it transparently
	// from a fresh List. Anything else means the watch is broken in a way
	// that isn't going to self-heal, so the process should restart.
	err = endpointsInformer.SetWatchErrorHandler(func(_ *cache.Reflector, watchErr error) {
		if apierrors.IsResourceExpired(watchErr) || apierrors.IsGone(watchErr) {
			logg.Debug("metricsendpoints: k8s watch for service %s restarting after Gone: %s", serviceName, watchErr.Error())
			return
		}
		logg.Fatal("metricsendpoints: k8s watch for service %s failed: %s", serviceName, watchErr.Error())
	})
	if err != nil {
		return nil, fmt.Errorf("metricsendpoints: setting watch error handler: %w", err)
	}

	ctx := context.Background()
	go endpointsInformer.Run(ctx.Done())
	if !cache.WaitForCacheSync(ctx.Done(), endpointsInformer.HasSynced) {
		return nil, fmt.Errorf("metricsendpoints: failed to sync endpoints informer for service %s", serviceName)
	}

	return k, nil
}

func (k *K8sServiceEndpoints) onEndpointsChanged(obj any) {
	endpoints, ok := obj.(*corev1.Endpoints)
	if !ok {
		return
	}
	var ips []string
	for _, subset := range endpoints.Subsets {
		for _, addr := range subset.Addresses {
			ips = append(ips, addr.IP)
		}
	}
	k.setIPs(ips)
	logg.Debug("metricsendpoints: got endpoint IPs for service %s: %v", k.serviceName, ips)
}

func (k *K8sServiceEndpoints) setIPs(ips []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ips = ips
}

// Call returns one scrape URL per currently-known backing pod IP, with the
// service hostname replaced by the pod IP.
func (k *K8sServiceEndpoints) Call() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	urls := make([]string, 0, len(k.ips))
	for _, ip := range k.ips {
		u := *k.url
		if port := k.url.Port(); port != "" {
			u.Host = ip + ":" + port
		} else {
			u.Host = ip
		}
		urls = append(urls, u.String())
	}
	return urls
}
