package miner

import (
	"context"
	"fmt"
	"sort"

	"github.com/rigmon/rigmon/internal/jsonpath"
)

// fieldRef binds a stable field name to the endpoint and path that
// produce its value. The table replaces the per-field accessor methods
// the API would otherwise accumulate; every entry resolves through the
// same Lookup (cache first, history second).
type fieldRef struct {
	endpoint Endpoint
	selector string
}

var fieldPaths = map[string]fieldRef{
	// summary
	"sum_id":                  {EndpointSummary, "id"},
	"sum_worker_id":           {EndpointSummary, "worker_id"},
	"sum_uptime":              {EndpointSummary, "uptime"},
	"sum_restricted":          {EndpointSummary, "restricted"},
	"sum_resources":           {EndpointSummary, "resources"},
	"sum_memory_usage":        {EndpointSummary, "resources.memory"},
	"sum_free_memory":         {EndpointSummary, "resources.memory.free"},
	"sum_total_memory":        {EndpointSummary, "resources.memory.total"},
	"sum_resident_set_memory": {EndpointSummary, "resources.memory.resident_set_memory"},
	"sum_load_average":        {EndpointSummary, "resources.load_average"},
	"sum_hardware_concurrency": {
		EndpointSummary, "resources.hardware_concurrency"},
	"sum_features":            {EndpointSummary, "features"},
	"sum_results":             {EndpointSummary, "results"},
	"sum_current_difficulty":  {EndpointSummary, "results.diff_current"},
	"sum_good_shares":         {EndpointSummary, "results.shares_good"},
	"sum_total_shares":        {EndpointSummary, "results.shares_total"},
	"sum_avg_time":            {EndpointSummary, "results.avg_time"},
	"sum_avg_time_ms":         {EndpointSummary, "results.avg_time_ms"},
	"sum_total_hashes":        {EndpointSummary, "results.hashes_total"},
	"sum_best_results":        {EndpointSummary, "results.best"},
	"sum_algorithm":           {EndpointSummary, "algo"},
	"sum_connection":          {EndpointSummary, "connection"},
	"sum_pool_info":           {EndpointSummary, "connection.pool"},
	"sum_pool_ip_address":     {EndpointSummary, "connection.ip"},
	"sum_pool_uptime":         {EndpointSummary, "connection.uptime"},
	"sum_pool_uptime_ms":      {EndpointSummary, "connection.uptime_ms"},
	"sum_pool_ping":           {EndpointSummary, "connection.ping"},
	"sum_pool_failures":       {EndpointSummary, "connection.failures"},
	"sum_pool_tls":            {EndpointSummary, "connection.tls"},
	"sum_pool_tls_fingerprint": {
		EndpointSummary, "connection.tls-fingerprint"},
	"sum_pool_algo":            {EndpointSummary, "connection.algo"},
	"sum_pool_diff":            {EndpointSummary, "connection.diff"},
	"sum_pool_accepted_jobs":   {EndpointSummary, "connection.accepted"},
	"sum_pool_rejected_jobs":   {EndpointSummary, "connection.rejected"},
	"sum_pool_average_time":    {EndpointSummary, "connection.avg_time"},
	"sum_pool_average_time_ms": {EndpointSummary, "connection.avg_time_ms"},
	"sum_pool_total_hashes":    {EndpointSummary, "connection.hashes_total"},
	"sum_version":              {EndpointSummary, "version"},
	"sum_kind":                 {EndpointSummary, "kind"},
	"sum_ua":                   {EndpointSummary, "ua"},
	"sum_cpu_info":             {EndpointSummary, "cpu"},
	"sum_cpu_brand":            {EndpointSummary, "cpu.brand"},
	"sum_cpu_family":           {EndpointSummary, "cpu.family"},
	"sum_cpu_model":            {EndpointSummary, "cpu.model"},
	"sum_cpu_stepping":         {EndpointSummary, "cpu.stepping"},
	"sum_cpu_proc_info":        {EndpointSummary, "cpu.proc_info"},
	"sum_cpu_aes":              {EndpointSummary, "cpu.aes"},
	"sum_cpu_avx2":             {EndpointSummary, "cpu.avx2"},
	"sum_cpu_x64":              {EndpointSummary, "cpu.x64"},
	"sum_cpu_64_bit":           {EndpointSummary, "cpu.64_bit"},
	"sum_cpu_l2":               {EndpointSummary, "cpu.l2"},
	"sum_cpu_l3":               {EndpointSummary, "cpu.l3"},
	"sum_cpu_cores":            {EndpointSummary, "cpu.cores"},
	"sum_cpu_threads":          {EndpointSummary, "cpu.threads"},
	"sum_cpu_packages":         {EndpointSummary, "cpu.packages"},
	"sum_cpu_nodes":            {EndpointSummary, "cpu.nodes"},
	"sum_cpu_backend":          {EndpointSummary, "cpu.backend"},
	"sum_cpu_msr":              {EndpointSummary, "cpu.msr"},
	"sum_cpu_assembly":         {EndpointSummary, "cpu.assembly"},
	"sum_cpu_arch":             {EndpointSummary, "cpu.arch"},
	"sum_cpu_flags":            {EndpointSummary, "cpu.flags"},
	"sum_donate_level":         {EndpointSummary, "donate_level"},
	"sum_paused":               {EndpointSummary, "paused"},
	"sum_algorithms":           {EndpointSummary, "algorithms"},
	"sum_hashrates":            {EndpointSummary, "hashrate"},
	"sum_hashrate_10s":         {EndpointSummary, "hashrate.total.0"},
	"sum_hashrate_1m":          {EndpointSummary, "hashrate.total.1"},
	"sum_hashrate_15m":         {EndpointSummary, "hashrate.total.2"},
	"sum_hashrate_highest":     {EndpointSummary, "hashrate.highest"},
	"sum_hugepages":            {EndpointSummary, "hugepages"},

	// backends: index 0 is the CPU backend, 1/2 exist only on
	// multi-backend builds and miss cleanly otherwise.
	"be_cpu_type":          {EndpointBackends, "0.type"},
	"be_cpu_enabled":       {EndpointBackends, "0.enabled"},
	"be_cpu_algo":          {EndpointBackends, "0.algo"},
	"be_cpu_profile":       {EndpointBackends, "0.profile"},
	"be_cpu_hw_aes":        {EndpointBackends, "0.hw-aes"},
	"be_cpu_priority":      {EndpointBackends, "0.priority"},
	"be_cpu_msr":           {EndpointBackends, "0.msr"},
	"be_cpu_asm":           {EndpointBackends, "0.asm"},
	"be_cpu_argon2_impl":   {EndpointBackends, "0.argon2-impl"},
	"be_cpu_hugepages":     {EndpointBackends, "0.hugepages"},
	"be_cpu_memory":        {EndpointBackends, "0.memory"},
	"be_cpu_hashrates":     {EndpointBackends, "0.hashrate"},
	"be_cpu_hashrate_10s":  {EndpointBackends, "0.hashrate.0"},
	"be_cpu_hashrate_1m":   {EndpointBackends, "0.hashrate.1"},
	"be_cpu_hashrate_15m":  {EndpointBackends, "0.hashrate.2"},
	"be_cpu_threads":       {EndpointBackends, "0.threads"},
	"be_opencl_type":       {EndpointBackends, "1.type"},
	"be_opencl_enabled":    {EndpointBackends, "1.enabled"},
	"be_opencl_algo":       {EndpointBackends, "1.algo"},
	"be_opencl_profile":    {EndpointBackends, "1.profile"},
	"be_opencl_platform":   {EndpointBackends, "1.platform"},
	"be_opencl_platform_index": {
		EndpointBackends, "1.platform.index"},
	"be_opencl_platform_name": {
		EndpointBackends, "1.platform.name"},
	"be_opencl_platform_vendor": {
		EndpointBackends, "1.platform.vendor"},
	"be_opencl_hashrates":    {EndpointBackends, "1.hashrate"},
	"be_opencl_hashrate_10s": {EndpointBackends, "1.hashrate.0"},
	"be_opencl_hashrate_1m":  {EndpointBackends, "1.hashrate.1"},
	"be_opencl_hashrate_15m": {EndpointBackends, "1.hashrate.2"},
	"be_opencl_threads":      {EndpointBackends, "1.threads"},
	"be_cuda_type":           {EndpointBackends, "2.type"},
	"be_cuda_enabled":        {EndpointBackends, "2.enabled"},
	"be_cuda_algo":           {EndpointBackends, "2.algo"},
	"be_cuda_profile":        {EndpointBackends, "2.profile"},
	"be_cuda_versions":       {EndpointBackends, "2.versions"},
	"be_cuda_runtime":        {EndpointBackends, "2.versions.cuda-runtime"},
	"be_cuda_driver":         {EndpointBackends, "2.versions.cuda-driver"},
	"be_cuda_plugin":         {EndpointBackends, "2.versions.plugin"},
	"be_cuda_hashrates":      {EndpointBackends, "2.hashrate"},
	"be_cuda_hashrate_10s":   {EndpointBackends, "2.hashrate.0"},
	"be_cuda_hashrate_1m":    {EndpointBackends, "2.hashrate.1"},
	"be_cuda_hashrate_15m":   {EndpointBackends, "2.hashrate.2"},
	"be_cuda_threads":        {EndpointBackends, "2.threads"},

	// config
	"conf_api":          {EndpointConfig, "api"},
	"conf_api_id":       {EndpointConfig, "api.id"},
	"conf_api_worker_id": {
		EndpointConfig, "api.worker-id"},
	"conf_http":              {EndpointConfig, "http"},
	"conf_http_enabled":      {EndpointConfig, "http.enabled"},
	"conf_http_host":         {EndpointConfig, "http.host"},
	"conf_http_port":         {EndpointConfig, "http.port"},
	"conf_http_access_token": {EndpointConfig, "http.access-token"},
	"conf_http_restricted":   {EndpointConfig, "http.restricted"},
	"conf_autosave":          {EndpointConfig, "autosave"},
	"conf_background":        {EndpointConfig, "background"},
	"conf_colors":            {EndpointConfig, "colors"},
	"conf_title":             {EndpointConfig, "title"},
	"conf_randomx":           {EndpointConfig, "randomx"},
	"conf_randomx_init":      {EndpointConfig, "randomx.init"},
	"conf_randomx_init_avx2": {EndpointConfig, "randomx.init-avx2"},
	"conf_randomx_mode":      {EndpointConfig, "randomx.mode"},
	"conf_randomx_1gb_pages": {EndpointConfig, "randomx.1gb-pages"},
	"conf_randomx_rdmsr":     {EndpointConfig, "randomx.rdmsr"},
	"conf_randomx_wrmsr":     {EndpointConfig, "randomx.wrmsr"},
	"conf_randomx_numa":      {EndpointConfig, "randomx.numa"},
	"conf_cpu":               {EndpointConfig, "cpu"},
	"conf_cpu_enabled":       {EndpointConfig, "cpu.enabled"},
	"conf_cpu_huge_pages":    {EndpointConfig, "cpu.huge-pages"},
	"conf_cpu_hw_aes":        {EndpointConfig, "cpu.hw-aes"},
	"conf_cpu_priority":      {EndpointConfig, "cpu.priority"},
	"conf_cpu_memory_pool":   {EndpointConfig, "cpu.memory-pool"},
	"conf_donate_level":      {EndpointConfig, "donate-level"},
	"conf_log_file":          {EndpointConfig, "log-file"},
	"conf_pools":             {EndpointConfig, "pools"},
	"conf_print_time":        {EndpointConfig, "print-time"},
	"conf_retries":           {EndpointConfig, "retries"},
	"conf_retry_pause":       {EndpointConfig, "retry-pause"},
}

// Field resolves a named field from the table. ok=false means either
// the name is unknown or the data is not available.
func (c *Client) Field(ctx context.Context, name string) (any, bool) {
	ref, ok := fieldPaths[name]
	if !ok {
		return nil, false
	}
	return c.Lookup(ctx, ref.endpoint, jsonpath.Parse(ref.selector))
}

// FieldNames lists every known field name, sorted.
func FieldNames() []string {
	names := make([]string, 0, len(fieldPaths))
	for name := range fieldPaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Uptime returns the miner uptime in seconds.
func (c *Client) Uptime(ctx context.Context) (int64, bool) {
	return c.lookupInt(ctx, EndpointSummary, "uptime")
}

// UptimeReadable formats the uptime as H:MM:SS, prefixed with a days
// component only once the miner has been up for 24 hours or more.
func (c *Client) UptimeReadable(ctx context.Context) (string, bool) {
	secs, ok := c.Uptime(ctx)
	if !ok {
		return "", false
	}
	return FormatUptime(secs), true
}

// FormatUptime renders a second count the way the miner's own
// tooling prints durations: "1:23:20", "1 day, 0:00:05",
// "2 days, 3:04:05".
func FormatUptime(secs int64) string {
	days := secs / 86400
	rem := secs % 86400
	hms := fmt.Sprintf("%d:%02d:%02d", rem/3600, (rem%3600)/60, rem%60)
	if days == 0 {
		return hms
	}
	if days == 1 {
		return fmt.Sprintf("1 day, %s", hms)
	}
	return fmt.Sprintf("%d days, %s", days, hms)
}

// Paused reports whether the mining process is paused.
func (c *Client) Paused(ctx context.Context) (bool, bool) {
	v, ok := c.Lookup(ctx, EndpointSummary, jsonpath.Parse("paused"))
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// WorkerID returns the worker identifier from the summary.
func (c *Client) WorkerID(ctx context.Context) (string, bool) {
	v, ok := c.Lookup(ctx, EndpointSummary, jsonpath.Parse("worker_id"))
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Hashrate10s returns the total hashrate over the last ten seconds.
func (c *Client) Hashrate10s(ctx context.Context) (float64, bool) {
	return c.lookupFloat(ctx, EndpointSummary, "hashrate.total.0")
}

// HighestHashrate returns the highest total hashrate seen this run.
func (c *Client) HighestHashrate(ctx context.Context) (float64, bool) {
	return c.lookupFloat(ctx, EndpointSummary, "hashrate.highest")
}

// EnabledBackends lists the type names of backends that are present
// and enabled. Absent positional slots (no GPU build, for example) are
// skipped, never reported as placeholders.
func (c *Client) EnabledBackends(ctx context.Context) []string {
	var enabled []string
	for i := 0; i < 3; i++ {
		v, ok := c.Lookup(ctx, EndpointBackends, jsonpath.Path{jsonpath.Index(i), jsonpath.Key("enabled")})
		if !ok {
			continue
		}
		if on, _ := v.(bool); !on {
			continue
		}
		t, ok := c.Lookup(ctx, EndpointBackends, jsonpath.Path{jsonpath.Index(i), jsonpath.Key("type")})
		if !ok {
			continue
		}
		if name, ok := t.(string); ok {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

func (c *Client) lookupInt(ctx context.Context, ep Endpoint, selector string) (int64, bool) {
	f, ok := c.lookupFloat(ctx, ep, selector)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func (c *Client) lookupFloat(ctx context.Context, ep Endpoint, selector string) (float64, bool) {
	v, ok := c.Lookup(ctx, ep, jsonpath.Parse(selector))
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
