package fluid

// OpenCL C sources of the stage programs. Arguments follow the device's
// binding order: target size and buffer, then (buffer, width, height) per
// sampler, then every uniform component in declaration order. The helpers
// sample_nearest, sample_bilerp and sample_wall come from the device prelude.

// advectionBody is shared by both advection kernels. Buffers carry no
// sampler state, so the filtered variant interpolates in the kernel too.
const advectionBody = `(
    const int width, const int height, __global float4* out,
    __global const float4* vel, const int vel_w, const int vel_h,
    __global const float4* src, const int src_w, const int src_h,
    const float texel_x, const float texel_y,
    const float src_texel_x, const float src_texel_y,
    const float dt, const float dissipation)
{
    FRAGMENT_BEGIN
    float2 texel = (float2)(texel_x, texel_y);
    float2 v = sample_bilerp(vel, vel_w, vel_h, uv).xy;
    float2 coord = uv - dt * v * texel;
    out[idx] = dissipation * sample_bilerp(src, src_w, src_h, coord);
}
`

const (
	advectionKernel       = "\n__kernel void advection" + advectionBody
	advectionManualKernel = "\n__kernel void advection_manual" + advectionBody
)

const curlKernel = `
__kernel void curl(
    const int width, const int height, __global float4* out,
    __global const float4* vel, const int vel_w, const int vel_h,
    const float texel_x, const float texel_y)
{
    FRAGMENT_BEGIN
    float L = sample_wall(vel, vel_w, vel_h, uv - (float2)(texel_x, 0.0f)).y;
    float R = sample_wall(vel, vel_w, vel_h, uv + (float2)(texel_x, 0.0f)).y;
    float T = sample_wall(vel, vel_w, vel_h, uv + (float2)(0.0f, texel_y)).x;
    float B = sample_wall(vel, vel_w, vel_h, uv - (float2)(0.0f, texel_y)).x;
    out[idx] = (float4)(0.5f * (R - L - T + B), 0.0f, 0.0f, 1.0f);
}
`

const vorticityKernel = `
__kernel void vorticity(
    const int width, const int height, __global float4* out,
    __global const float4* vel, const int vel_w, const int vel_h,
    __global const float4* crl, const int crl_w, const int crl_h,
    const float texel_x, const float texel_y,
    const float strength, const float dt)
{
    FRAGMENT_BEGIN
    float L = sample_nearest(crl, crl_w, crl_h, uv - (float2)(texel_x, 0.0f)).x;
    float R = sample_nearest(crl, crl_w, crl_h, uv + (float2)(texel_x, 0.0f)).x;
    float T = sample_nearest(crl, crl_w, crl_h, uv + (float2)(0.0f, texel_y)).x;
    float B = sample_nearest(crl, crl_w, crl_h, uv - (float2)(0.0f, texel_y)).x;
    float C = sample_nearest(crl, crl_w, crl_h, uv).x;
    float2 force = 0.5f * (float2)(fabs(T) - fabs(B), fabs(R) - fabs(L));
    force /= length(force) + 0.0001f;
    force *= strength * C;
    force.y *= -1.0f;
    float2 v = sample_nearest(vel, vel_w, vel_h, uv).xy;
    out[idx] = (float4)(v + force * dt, 0.0f, 1.0f);
}
`

const divergenceKernel = `
__kernel void divergence(
    const int width, const int height, __global float4* out,
    __global const float4* vel, const int vel_w, const int vel_h,
    const float texel_x, const float texel_y)
{
    FRAGMENT_BEGIN
    float L = sample_wall(vel, vel_w, vel_h, uv - (float2)(texel_x, 0.0f)).x;
    float R = sample_wall(vel, vel_w, vel_h, uv + (float2)(texel_x, 0.0f)).x;
    float T = sample_wall(vel, vel_w, vel_h, uv + (float2)(0.0f, texel_y)).y;
    float B = sample_wall(vel, vel_w, vel_h, uv - (float2)(0.0f, texel_y)).y;
    out[idx] = (float4)(0.5f * (R - L + T - B), 0.0f, 0.0f, 1.0f);
}
`

const clearKernel = `
__kernel void clear(
    const int width, const int height, __global float4* out,
    __global const float4* tex, const int tex_w, const int tex_h,
    const float value)
{
    FRAGMENT_BEGIN
    out[idx] = value * sample_nearest(tex, tex_w, tex_h, uv);
}
`

const pressureKernel = `
__kernel void pressure(
    const int width, const int height, __global float4* out,
    __global const float4* prs, const int prs_w, const int prs_h,
    __global const float4* dvg, const int dvg_w, const int dvg_h,
    const float texel_x, const float texel_y)
{
    FRAGMENT_BEGIN
    float L = sample_nearest(prs, prs_w, prs_h, uv - (float2)(texel_x, 0.0f)).x;
    float R = sample_nearest(prs, prs_w, prs_h, uv + (float2)(texel_x, 0.0f)).x;
    float T = sample_nearest(prs, prs_w, prs_h, uv + (float2)(0.0f, texel_y)).x;
    float B = sample_nearest(prs, prs_w, prs_h, uv - (float2)(0.0f, texel_y)).x;
    float d = sample_nearest(dvg, dvg_w, dvg_h, uv).x;
    out[idx] = (float4)((L + R + B + T - d) * 0.25f, 0.0f, 0.0f, 1.0f);
}
`

const gradientSubtractKernel = `
__kernel void gradient_subtract(
    const int width, const int height, __global float4* out,
    __global const float4* prs, const int prs_w, const int prs_h,
    __global const float4* vel, const int vel_w, const int vel_h,
    const float texel_x, const float texel_y)
{
    FRAGMENT_BEGIN
    float L = sample_nearest(prs, prs_w, prs_h, uv - (float2)(texel_x, 0.0f)).x;
    float R = sample_nearest(prs, prs_w, prs_h, uv + (float2)(texel_x, 0.0f)).x;
    float T = sample_nearest(prs, prs_w, prs_h, uv + (float2)(0.0f, texel_y)).x;
    float B = sample_nearest(prs, prs_w, prs_h, uv - (float2)(0.0f, texel_y)).x;
    float2 v = sample_nearest(vel, vel_w, vel_h, uv).xy;
    v -= 0.5f * (float2)(R - L, T - B);
    out[idx] = (float4)(v, 0.0f, 1.0f);
}
`

const splatKernel = `
__kernel void splat(
    const int width, const int height, __global float4* out,
    __global const float4* target, const int target_w, const int target_h,
    const float aspect,
    const float color_r, const float color_g, const float color_b,
    const float point_x, const float point_y,
    const float radius)
{
    FRAGMENT_BEGIN
    float2 p = uv - (float2)(point_x, point_y);
    p.x *= aspect;
    float w = exp(-dot(p, p) / radius);
    float4 base = sample_nearest(target, target_w, target_h, uv);
    out[idx] = (float4)(base.xyz + w * (float3)(color_r, color_g, color_b), 1.0f);
}
`

const displayKernel = `
__kernel void display(
    const int width, const int height, __global float4* out,
    __global const float4* tex, const int tex_w, const int tex_h)
{
    FRAGMENT_BEGIN
    float4 c = sample_nearest(tex, tex_w, tex_h, uv);
    out[idx] = (float4)(c.xyz, fmax(c.x, fmax(c.y, c.z)));
}
`
