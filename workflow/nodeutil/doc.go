// Package nodeutil holds helpers shared by AI sub-nodes: the proxy-aware
// transport, the connection hint field, the LLMTracing callback and the
// failed-attempt handler factory.
package nodeutil
